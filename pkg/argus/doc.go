// Package argus analyzes a startup pitch deck with a fixed graph of
// model-backed stages.
//
// The extractor pulls founders, competitors, financial claims and the
// industry out of the document. Three analysts then run in parallel, each on
// its own copy of the run state: the founder analyst searches each founder's
// background, the market analyst searches news on each competitor, and the
// financial analyst checks the claims. The validator waits for all three
// reports and checks them against the document. Synthesis turns the reports
// and the verdict into an investment memo.
//
// Every stage declares the RunState fields it reads and writes. The graph is
// compiled with those declarations, so a stage that reads a field no
// predecessor produces is rejected before anything runs, and a stage that
// writes outside its declaration fails the run.
//
// Basic usage:
//
//	p, err := argus.NewPipeline(argus.Deps{LLM: client, Search: searcher})
//	if err != nil {
//	    return err
//	}
//	memo, err := p.Run(ctx, ref)
//
// Search failures never fail a stage; they become part of the evidence the
// model sees. Generation failures fail the stage and the run, except that
// unparseable extractor output degrades to an empty entity set
// (OutcomeFallback).
package argus
