package domain

// ComputeCFR returns the crude CFR of every region in the grid. Both maxima
// are taken over reported values only and independently of each other.
// Regions with no cases reported, or a maximum of zero, are listed as
// undefined instead of failing the computation.
func ComputeCFR(g *Grid) CFRResult {
	var res CFRResult
	for _, region := range g.Regions() {
		cases, ok := g.MaxReported(region, MeasureCases)
		if !ok || cases == 0 {
			res.Undefined = append(res.Undefined, region)
			continue
		}
		deaths, _ := g.MaxReported(region, MeasureDeaths)
		res.Defined = append(res.Defined, RegionCFR{
			Region:    region,
			MaxDeaths: deaths,
			MaxCases:  cases,
			CFR:       float64(deaths) / float64(cases),
		})
	}
	return res
}

// SummarizeNational sums the completed cumulative counts of all regions per
// day, using the same forward-fill rules as the death series.
func SummarizeNational(g *Grid, policy ZeroPolicy) []NationalTotals {
	dates := g.Dates()
	out := make([]NationalTotals, len(dates))
	for i, d := range dates {
		out[i].Date = d
	}
	for _, region := range g.Regions() {
		cases := g.Complete(region, MeasureCases, policy)
		hosp := g.Complete(region, MeasureHospitalizations, policy)
		deaths := g.Complete(region, MeasureDeaths, policy)
		for i := range out {
			out[i].Cases += cases.Cumulative[i]
			out[i].Hospitalizations += hosp.Cumulative[i]
			out[i].Deaths += deaths.Cumulative[i]
		}
	}
	return out
}
