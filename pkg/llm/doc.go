// Package llm defines the text-generation contract used by the analysis
// stages: role-tagged messages whose parts are either text or a reference to
// a stored document, a Client interface, an Anthropic Messages API client,
// and a scriptable mock for tests.
//
// Basic usage:
//
//	client := llm.NewAnthropicClient(apiKey, llm.WithDocumentSource(store))
//	resp, err := client.Complete(ctx, llm.CompletionRequest{
//	    System: "You are a diligent analyst.",
//	    Messages: []llm.Message{
//	        llm.UserMessage(llm.TextPart("Summarize this deck."), llm.DocumentPart(ref, llm.MediaTypePDF)),
//	    },
//	})
package llm
