// Package ranking computes relevance scores for marketplace listings.
//
// A listing's score blends two signals: its trust score, normalized to
// [0, 1], and its proximity to the searcher, which decays linearly with
// distance and floors at zero beyond the search radius. When no searcher
// location is available the score falls back to the trust component alone,
// unweighted, so trust-only scores and blended scores are not directly
// comparable across requests.
//
// Weights default to 0.6 trust / 0.4 proximity and can be overridden with a
// JSON calibration file via LoadCalibration.
package ranking
