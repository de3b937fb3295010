// conf/validate.go

package conf

import (
	"fmt"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	if err := validateSpecSettings(&settings.Spec); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if settings.Detector.Threshold < 0 {
		ve.Errors = append(ve.Errors, "detector threshold must be non-negative")
	}

	if err := validateEvaluateSettings(&settings.Evaluate); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if err := validateOutputSettings(&settings.Output); err != nil {
		ve.Errors = append(ve.Errors, err.Error())
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateSpecSettings(s *SpecSettings) error {
	var errs []string

	if s.SampleRate <= 0 {
		errs = append(errs, "sample rate must be positive")
	}
	if s.Seconds <= 0 {
		errs = append(errs, "chunk seconds must be positive")
	}
	if s.Overlap < 0 || s.Overlap >= s.Seconds {
		errs = append(errs, fmt.Sprintf("overlap %.2f must be in [0, seconds)", s.Overlap))
	}
	if s.MinLen < 0 {
		errs = append(errs, "minimum chunk length must be non-negative")
	}
	if s.NFFT <= 0 || s.HopLength <= 0 || s.NMels <= 0 {
		errs = append(errs, "nfft, hop length and mel count must be positive")
	}
	if s.FMin < 0 || (s.FMax > 0 && s.FMax <= s.FMin) {
		errs = append(errs, "fmin must be non-negative and below fmax")
	}
	if s.FMax > float64(s.SampleRate)/2 {
		errs = append(errs, fmt.Sprintf("fmax %.0f exceeds Nyquist frequency", s.FMax))
	}
	if s.Power != 1 && s.Power != 2 {
		errs = append(errs, "power must be 1 or 2")
	}
	switch s.ImageScale {
	case "linear", "db":
	default:
		errs = append(errs, fmt.Sprintf("invalid image scale %q, expected linear or db", s.ImageScale))
	}

	if len(errs) > 0 {
		return fmt.Errorf("spec settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateEvaluateSettings(e *EvaluateSettings) error {
	var errs []string

	if e.NumClasses <= 0 {
		errs = append(errs, "num_classes must be positive")
	}
	if e.RestoreFile == "" {
		errs = append(errs, "restore_file must not be empty")
	}
	switch e.Layout {
	case "auto", "manifest", "folders":
	default:
		errs = append(errs, fmt.Sprintf("invalid dataset layout %q", e.Layout))
	}
	if e.Threads < 0 {
		errs = append(errs, "threads must be non-negative")
	}

	if len(errs) > 0 {
		return fmt.Errorf("evaluate settings: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateOutputSettings(o *OutputSettings) error {
	if o.SQLite.Enabled && o.MySQL.Enabled {
		return fmt.Errorf("output settings: sqlite and mysql cannot both be enabled")
	}
	if o.SQLite.Enabled && o.SQLite.Path == "" {
		return fmt.Errorf("output settings: sqlite path must not be empty")
	}
	if o.MySQL.Enabled && (o.MySQL.Host == "" || o.MySQL.Database == "") {
		return fmt.Errorf("output settings: mysql host and database are required")
	}
	return nil
}
