// Package domain models early COVID-19 surveillance counts and the analysis
// that turns them into a national daily-death curve and a crude CFR map.
//
// # Data Source
//
// Input rows come from a daily surveillance table with one row per
// (date, region). Each row carries running totals as of that date:
//
//	date, region, cumulative confirmed cases, cumulative hospitalizations,
//	cumulative deaths
//
// Any count may be missing. Regions report irregularly: a region can skip
// days, report a count on some days and not others, or repeat yesterday's
// total. Empty region identifiers are dropped at load time.
//
// # Cleaning
//
// The observed rows are placed into a [Grid] spanning every calendar day from
// the first to the last observed date for every region. Each cell is either
// reported or absent. A region's completed series is produced by forward
// filling absent cells from the most recent known value (0 before the first
// report).
//
// Zero handling:
//
//	A reported 0 after the first day is indistinguishable from "no report" in
//	the source data. Under [ZeroAsMissing] (the default) it is forward filled;
//	under [TrustZero] it is kept.
//
// Decreasing totals:
//
//	Cumulative counters are assumed non-decreasing. A decrease (usually a
//	correction upstream) shows up as a negative daily increment and an
//	[Anomaly]. [ClampDecreases] holds the running maximum instead.
//
// # Modelling
//
// Daily increments are summed across regions per day into a national series.
// A polynomial (degree 5 by default) is fit by ordinary least squares over the
// days on or after the fit window start, then evaluated on the days after the
// last observation to produce a projection. Projections are not rounded and
// may be negative unless clamping is requested.
//
// # CFR
//
// Crude CFR per region is max(cumulative deaths) / max(cumulative cases), the
// two maxima taken independently. Regions without cases have no CFR and are
// listed separately rather than failing the run.
package domain
