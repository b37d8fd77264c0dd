// Package transcript turns exported meeting documents into attributed utterances.
//
// The pipeline is leaf-first: a speaker validator and a name normalizer feed the
// line-grammar Parser; DocumentNormalizer reconciles the native and Drive-export
// document shapes before parsing; ExtractParticipantStats and Aggregator reduce
// parsed utterances into per-speaker counts for one or many meetings.
//
// Nothing in this package performs I/O or logs. Data-quality problems degrade to
// smaller or empty results and are reported as values (see DateResult and Diagnose).
package transcript
