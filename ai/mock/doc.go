// Package mock provides test doubles for the ai package interfaces.
//
// Behavior is injected through exported function fields; call counts are
// recorded for assertions.
//
//	completer := mock.NewMockCompleter(`{"thread_summary":"S"}`)
//	completer.CompleteFunc = func(ctx context.Context, msgs []ai.Message, handle string) (ai.Completion, error) {
//	    return ai.Completion{}, errors.New("model offline")
//	}
//
//	count := completer.CallCount()
//
// # Default Behavior
//
//   - MockEmbedder: Returns deterministic unit vectors based on text hash
//   - MockCompleter: Returns its configured Response and echoes the handle
//   - MockProvider: Aggregates mock embedder and completer
package mock
