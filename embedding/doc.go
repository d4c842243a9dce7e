// Package embedding runs text embedding across a fixed pool of workers.
//
// An Orchestrator owns N embedders, one per worker, built up front from an
// ai.EmbedderFactory. A batch is split into N contiguous chunks that are
// queued on a shared bounded channel; results are matched back by chunk
// index so the output order always equals the input order. Any chunk
// failure fails the whole batch.
//
//	o, err := embedding.New(provider.NewEmbedder, embedding.WithWorkers(4))
//	if err != nil {
//	    return err
//	}
//	defer o.Close()
//	vectors, err := o.EmbedTexts(ctx, texts)
package embedding
