package compiler

import (
	"errors"
	"fmt"
)

// Phase is one step of the compilation pipeline. Phases run in order.
type Phase int

const (
	PhaseInitialization Phase = iota
	PhaseParsing
	PhaseConversion
	PhaseSemanticAnalysis
	PhaseCanonicalization
	PhaseInstructionSelection
	PhaseClassGeneration
	PhaseOutput
	PhaseFinalization
)

var phaseNames = [...]string{
	"initialization",
	"parsing",
	"conversion",
	"semantic analysis",
	"canonicalization",
	"instruction selection",
	"class generation",
	"output",
	"finalization",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// Operation is one transform run during a phase.
type Operation func(u *Unit) error

// Unit is a compilation unit: the module tree plus its diagnostics.
type Unit struct {
	Name      string
	Module    *ModuleNode
	Collector *Collector

	phase Phase
}

// NewUnit creates a unit positioned before its first phase.
func NewUnit(name string, module *ModuleNode, collector *Collector) *Unit {
	if collector == nil {
		collector = NewCollector(DefaultCollectorOptions())
	}
	return &Unit{Name: name, Module: module, Collector: collector}
}

// Phase returns the last phase run.
func (u *Unit) Phase() Phase { return u.phase }

// Run executes ops for phase. An *AbortError from an operation ends the phase
// immediately; otherwise all operations run and the phase fails if any error
// was collected.
func (u *Unit) Run(phase Phase, ops ...Operation) error {
	if phase < u.phase {
		return fmt.Errorf("%s: phase %s already completed (at %s)", u.Name, phase, u.phase)
	}
	u.phase = phase
	for _, op := range ops {
		if err := op(u); err != nil {
			var abort *AbortError
			if errors.As(err, &abort) {
				u.Collector.log.Warningf("%s: %s aborted", u.Name, phase)
				return err
			}
			return u.Collector.Fatal(nil, "%s: %v", phase, err)
		}
	}
	if u.Collector.HasErrors() {
		return u.Collector.Abort()
	}
	return nil
}
