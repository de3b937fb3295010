package conf

import "github.com/spf13/pflag"

// ViperKeyAnnotation marks the config key a command line flag overrides
const ViperKeyAnnotation = "birdnet-spec/viper-key"

// AnnotateFlag records the config key for flag name. Binding happens once
// the command to run is known, so flags with the same name on different
// commands do not overwrite each other's binding.
func AnnotateFlag(flags *pflag.FlagSet, name, key string) {
	// SetAnnotation only fails for an unknown flag, which is a programming error
	if err := flags.SetAnnotation(name, ViperKeyAnnotation, []string{key}); err != nil {
		panic(err)
	}
}
