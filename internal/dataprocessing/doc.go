// Package dataprocessing turns a joined historian extract into tank events.
//
// # Architecture
//
// Each tank goes through the same ordered steps:
//
//  1. SliceTank: cut the tank's columns out of the wide table, sorted by time
//  2. Clean: merge extra pumps, forward fill the pump flag, interpolate continuous channels
//  3. DeriveVolumes: mass per level percent and usable volume
//  4. SegmentEvents: one event per maximal run of constant pump state
//  5. Aggregate: per-event statistics, split into discharge and unloading
//  6. Calculator: durations, quantity and rates, short events removed
//
// The Combiner then folds all tank results into a BatchReport in metric tons.
//
// # Usage
//
//	table, err := dataprocessing.ReadWideTableFile("Raw Data 2024-03-09.csv")
//	if err != nil {
//	    return err
//	}
//	pipeline := dataprocessing.NewPipeline(cfg.Report, dataprocessing.WithLogger(logger))
//	report, err := pipeline.Run(ctx, table, tanks)
//
// # Error Handling
//
// A tank that is missing columns or has no usable data is reported as a TankFailure and
// the run continues. Division by a zero level produces NaN, which aggregation skips.
package dataprocessing
