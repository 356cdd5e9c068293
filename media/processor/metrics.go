package processor

const (
	MetricImages        = "imgpipe_images_total"
	MetricBytesIn       = "imgpipe_bytes_in_total"
	MetricBytesOut      = "imgpipe_bytes_out_total"
	MetricWarnings      = "imgpipe_warnings_total"
	MetricImageDuration = "imgpipe_image_duration_seconds"
	MetricBatches       = "imgpipe_batches_total"
	MetricCancelled     = "imgpipe_images_cancelled_total"
)

func (o *Orchestrator) record(outcome Outcome) {
	if o.metrics == nil {
		return
	}
	m := o.metrics

	if !outcome.Success {
		m.IncCounter(MetricImages, map[string]string{
			"status":     "failed",
			"error_type": string(outcome.ErrorType),
		})
		return
	}

	labels := map[string]string{"format": outcome.Format}
	m.IncCounter(MetricImages, map[string]string{"status": "ok", "format": outcome.Format})
	m.AddCounter(MetricBytesIn, float64(outcome.InputSize), labels)
	m.AddCounter(MetricBytesOut, float64(outcome.OutputSize), labels)
	m.ObserveHistogram(MetricImageDuration, outcome.Duration.Seconds(), labels)
	for _, w := range outcome.Warnings {
		m.IncCounter(MetricWarnings, map[string]string{"code": w.Code})
	}
}

func (o *Orchestrator) recordBatch(cancelled int) {
	if o.metrics == nil {
		return
	}
	o.metrics.IncCounter(MetricBatches, nil)
	if cancelled > 0 {
		o.metrics.AddCounter(MetricCancelled, float64(cancelled), nil)
	}
}
