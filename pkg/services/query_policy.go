package services

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/ekaya-inc/ekaya-dashboard/pkg/config"
)

// RandomSource yields uniformly distributed values in [0, 1).
type RandomSource interface {
	Float64() float64
}

type globalRandom struct{}

func (globalRandom) Float64() float64 { return rand.Float64() }

// FailurePolicy decides whether a query resolution fails.
type FailurePolicy struct {
	Probability float64
	Source      RandomSource // nil uses the shared math/rand source
}

// ShouldFail draws once from the source.
func (p FailurePolicy) ShouldFail() bool {
	if p.Probability <= 0 {
		return false
	}
	src := p.Source
	if src == nil {
		src = globalRandom{}
	}
	return src.Float64() < p.Probability
}

// Clock abstracts time so resolution delays can be driven by tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SubmissionPolicy decides what happens to a submission made while another is resolving.
type SubmissionPolicy int

const (
	// PolicyOverlap lets every submission resolve; the last one to resolve wins.
	PolicyOverlap SubmissionPolicy = iota
	// PolicyReject refuses new submissions while one is pending.
	PolicyReject
	// PolicySupersede discards the pending submission in favour of the new one.
	PolicySupersede
)

func (p SubmissionPolicy) String() string {
	switch p {
	case PolicyOverlap:
		return config.PolicyOverlap
	case PolicyReject:
		return config.PolicyReject
	case PolicySupersede:
		return config.PolicySupersede
	default:
		return fmt.Sprintf("SubmissionPolicy(%d)", int(p))
	}
}

// ParseSubmissionPolicy maps a configuration value to a SubmissionPolicy.
func ParseSubmissionPolicy(s string) (SubmissionPolicy, error) {
	switch s {
	case config.PolicyOverlap, "":
		return PolicyOverlap, nil
	case config.PolicyReject:
		return PolicyReject, nil
	case config.PolicySupersede:
		return PolicySupersede, nil
	default:
		return PolicyOverlap, fmt.Errorf("unknown submission policy %q", s)
	}
}
