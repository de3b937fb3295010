// Package cpuspec sizes inference threads and worker pools from the host CPU.
package cpuspec

import (
	"regexp"
	"runtime"
	"strings"

	"github.com/klauspost/cpuid/v2"
)

// CPUSpec contains information about CPU specifications
type CPUSpec struct {
	BrandName        string
	PhysicalCores    int
	LogicalCores     int
	PerformanceCores int
}

// performanceCores maps hybrid CPU models to their P-core counts.
var performanceCores = map[string]int{
	// Intel 12th-14th gen desktop
	"12900": 8, "12700": 8, "12600": 6, "12400": 6, "12100": 4,
	"13900": 8, "13700": 8, "13600": 6, "13500": 6, "13400": 6, "13100": 4,
	"14900": 8, "14700": 8, "14600": 6, "14400": 6, "14100": 4,
	// Intel Core Ultra
	"ultra 9 285": 8, "ultra 7 265": 8, "ultra 7 255": 8, "ultra 5 235": 6, "ultra 5 225": 4,
	// Apple Silicon
	"m1": 4, "m1 pro": 8, "m1 max": 8, "m1 ultra": 16,
	"m2": 4, "m2 pro": 8, "m2 max": 12, "m2 ultra": 24,
	"m3": 4, "m3 pro": 6, "m3 max": 12,
	"m4": 4, "m4 pro": 10, "m4 max": 12,
}

var (
	intelCoreRegex  = regexp.MustCompile(`core.*i[3579]-(\d{5})`)
	intelUltraRegex = regexp.MustCompile(`core.*(ultra\s+[579])\s+(?:processor\s+)?(\d{3})`)
	appleRegex      = regexp.MustCompile(`apple\s+(m[1-4](?:\s+(?:pro|max|ultra))?)`)
)

// GetCPUSpec returns CPU specifications of the host
func GetCPUSpec() CPUSpec {
	return CPUSpec{
		BrandName:        cpuid.CPU.BrandName,
		PhysicalCores:    cpuid.CPU.PhysicalCores,
		LogicalCores:     cpuid.CPU.LogicalCores,
		PerformanceCores: determinePerformanceCores(cpuid.CPU.BrandName),
	}
}

// GetOptimalThreadCount returns the recommended number of inference threads.
// Hybrid CPUs use their performance cores only.
func (c CPUSpec) GetOptimalThreadCount() int {
	availableCPUs := runtime.NumCPU()

	if c.PerformanceCores > 0 {
		return min(c.PerformanceCores, availableCPUs)
	}
	if c.LogicalCores > 0 {
		return min(c.LogicalCores, availableCPUs)
	}
	return availableCPUs
}

// WorkerCount resolves a configured worker count; values <= 0 mean automatic.
func (c CPUSpec) WorkerCount(requested int) int {
	if requested > 0 {
		return requested
	}
	return max(1, c.GetOptimalThreadCount())
}

func determinePerformanceCores(brandName string) int {
	brandName = strings.ToLower(brandName)

	if m := intelCoreRegex.FindStringSubmatch(brandName); m != nil {
		return performanceCores[m[1]]
	}
	if m := intelUltraRegex.FindStringSubmatch(brandName); m != nil {
		return performanceCores[strings.Join(strings.Fields(m[1]), " ")+" "+m[2]]
	}
	if m := appleRegex.FindStringSubmatch(brandName); m != nil {
		return performanceCores[strings.Join(strings.Fields(m[1]), " ")]
	}
	return 0
}
