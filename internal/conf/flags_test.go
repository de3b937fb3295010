package conf

import (
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
)

func TestAnnotateFlag(t *testing.T) {
	t.Parallel()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.Float64("threshold", DefaultThreshold, "")
	AnnotateFlag(flags, "threshold", "detector.threshold")

	f := flags.Lookup("threshold")
	assert.Equal(t, []string{"detector.threshold"}, f.Annotations[ViperKeyAnnotation])

	assert.Panics(t, func() { AnnotateFlag(flags, "missing", "x") })
}
