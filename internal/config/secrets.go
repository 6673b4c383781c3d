package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	// Manifold
	redact(&out.Manifold.APIKey)
	redact(&out.Manifold.KeyPassword)

	// Redis
	redact(&out.Redis.Password)

	// Postgres
	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	// S3
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	// Notify
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	out.Notify.Events = cloneStrings(cfg.Notify.Events)
	out.Targets.TrustedCreators = cloneStrings(cfg.Targets.TrustedCreators)
	out.Targets.AnyPhrases = cloneStrings(cfg.Targets.AnyPhrases)
	out.Targets.RedPhrases = cloneStrings(cfg.Targets.RedPhrases)
	if cfg.Scanner.ExcludedDates != nil {
		out.Scanner.ExcludedDates = append(out.Scanner.ExcludedDates[:0:0], cfg.Scanner.ExcludedDates...)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
