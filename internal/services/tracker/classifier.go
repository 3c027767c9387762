package tracker

import (
	"github.com/HaulDesk/TollTrace/internal/integrations/telemetry"
	"github.com/HaulDesk/TollTrace/internal/integrations/telemetry/synthetic"
)

// ClassifierPolicy holds the vendor fixture signatures observed in production
// responses. The values are coincidental signatures, not a principled detector,
// so they live in a named policy that can be tuned without touching the
// pipeline. DefaultClassifierPolicy preserves the observed thresholds exactly.
type ClassifierPolicy struct {
	// FixturePlazas are the plaza names seen in vendor test rows. The first
	// two also form the whole-batch fixture signature.
	FixturePlazas []string

	// FixtureBatchSize: a batch of exactly this size whose first two plazas
	// match FixturePlazas[0..1] is presumed to be a vendor mock response.
	FixtureBatchSize int

	// StripMinBatchSize: record-level stripping only applies to batches
	// strictly larger than this. Small batches are too ambiguous to strip.
	StripMinBatchSize int

	// SuspiciousMinutes are the crossing-time minutes vendor fixtures land on
	// (with seconds always zero).
	SuspiciousMinutes []int
}

func DefaultClassifierPolicy() ClassifierPolicy {
	return ClassifierPolicy{
		FixturePlazas: []string{
			synthetic.Plazas[0].Name,
			synthetic.Plazas[1].Name,
			synthetic.Plazas[2].Name,
		},
		FixtureBatchSize:  3,
		StripMinBatchSize: 10,
		SuspiciousMinutes: []int{0, 15, 50, 58},
	}
}

// Classify inspects a fetched batch. Batch-level fixture detection runs first:
// a matching batch is returned untouched but flagged genuine=false (the caller
// zero-costs it). Otherwise large batches get individually suspicious records
// stripped.
func (p ClassifierPolicy) Classify(records []telemetry.RawCrossing) (kept []telemetry.RawCrossing, genuine bool) {
	if len(records) == p.FixtureBatchSize && p.FixtureBatchSize >= 2 && len(p.FixturePlazas) >= 2 &&
		records[0].TollPlazaName == p.FixturePlazas[0] &&
		records[1].TollPlazaName == p.FixturePlazas[1] {
		return records, false
	}

	if len(records) <= p.StripMinBatchSize {
		return records, true
	}

	kept = make([]telemetry.RawCrossing, 0, len(records))
	for _, r := range records {
		if p.isSuspicious(r) {
			continue
		}
		kept = append(kept, r)
	}
	return kept, true
}

func (p ClassifierPolicy) isSuspicious(r telemetry.RawCrossing) bool {
	if !contains(p.FixturePlazas, r.TollPlazaName) {
		return false
	}
	t, err := telemetry.ParseReaderReadTime(r.ReaderReadTime)
	if err != nil {
		// нечитаемое время — оставляем, пусть решает парсер при persist
		return false
	}
	if t.Second() != 0 {
		return false
	}
	return containsInt(p.SuspiciousMinutes, t.Minute())
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsInt(list []int, n int) bool {
	for _, v := range list {
		if v == n {
			return true
		}
	}
	return false
}
