package metrics

// InitializeMetrics pre-populates the expected label combinations so that
// every metric is exported from the first Prometheus scrape.
// Call this once at startup after metric registration.
func InitializeMetrics() {
	for _, status := range []string{"success", "error", "skipped", "already_running"} {
		CleanupRunsTotal.WithLabelValues(status)
	}

	for _, variant := range []string{"primary", "thumbnail"} {
		VariantGenerationsTotal.WithLabelValues(variant, "success")
		VariantGenerationsTotal.WithLabelValues(variant, "error")
		VariantGenerationDuration.WithLabelValues(variant)
	}

	for _, status := range []string{"success", "error"} {
		GalleryMirrorsTotal.WithLabelValues(status)
	}

	for _, op := range []string{
		"initialize_schema", "create_record", "list_records", "delete_record",
		"list_receipt_paths", "get_profile_photo", "set_profile_photo",
		"load_settings", "save_settings", "last_cleanup", "set_last_cleanup",
	} {
		DBQueryTotal.WithLabelValues(op, "success")
		DBQueryTotal.WithLabelValues(op, "error")
		DBQueryDuration.WithLabelValues(op)
	}
}
