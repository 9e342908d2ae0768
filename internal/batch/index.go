// Package batch runs many independent API calls concurrently over one shared
// transport and hands back one result per call.
//
// A Session accumulates calls with Add, each returning an opaque Handle. The
// HTTP request for a call is started as soon as it is added. Execute waits for
// every started call, classifies each outcome and returns a map keyed by the
// handles Add returned:
//
//	s, _ := batch.NewSession(tr, batch.Options{}, logger)
//	defer s.Close()
//
//	h1, _ := s.Add("sendMessage", transport.Params{"chat_id": 1, "text": "hi"})
//	h2, _ := s.Add("sendMessage", transport.Params{"chat_id": 2, "text": "hi"})
//
//	results, err := s.Execute(ctx)
//	if err != nil {
//	    // the batch as a whole could not run
//	}
//	if !results[h1].OK() {
//	    // results[h1].Description explains why
//	}
//
// A failing call never aborts its siblings: network errors and undecodable
// bodies are reported per handle. Results arrive in completion order; only the
// handle ties a result to its call.
package batch
