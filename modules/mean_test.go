package modules_test

import (
	"errors"
	"testing"

	"github.com/Humhu/modprop/engine"
	"github.com/Humhu/modprop/matrix"
	"github.com/Humhu/modprop/modules"
	"gonum.org/v1/gonum/mat"
)

func TestMeanAveragesRegisteredSources(t *testing.T) {
	a := modules.NewConstant(mat.NewDense(1, 1, []float64{2}))
	b := modules.NewConstant(mat.NewDense(1, 1, []float64{4}))
	c := modules.NewConstant(mat.NewDense(1, 1, []float64{6}))
	mean := modules.NewMean()
	if err := mean.RegisterSource(a.Output()); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := mean.RegisterSource(b.Output()); err != nil {
		t.Fatalf("register b: %v", err)
	}
	if err := mean.RegisterSource(c.Output()); err != nil {
		t.Fatalf("register c: %v", err)
	}
	sink := modules.NewSink()
	engine.Link(mean.Output(), sink.Input())

	if err := a.Foreprop(); err != nil {
		t.Fatalf("foreprop a: %v", err)
	}
	if err := b.Foreprop(); err != nil {
		t.Fatalf("foreprop b: %v", err)
	}
	if err := c.Foreprop(); err != nil {
		t.Fatalf("foreprop c: %v", err)
	}
	v, err := sink.Value()
	if err != nil {
		t.Fatalf("value: %v", err)
	}
	if v.At(0, 0) != 4 {
		t.Fatalf("want mean 4, got %v", v.At(0, 0))
	}

	sink.SeedBackprop(mat.NewDense(1, 1, []float64{1}))
	if err := sink.Backprop(); err != nil {
		t.Fatalf("backprop: %v", err)
	}
	for i, src := range []*modules.Constant{a, b, c} {
		got := src.Output().BackpropValue().At(0, 0)
		if got != 1.0/3.0 {
			t.Fatalf("source %d: want adjoint 1/3, got %v", i, got)
		}
	}
}

func TestMeanForepropWithNoSourcesErrors(t *testing.T) {
	mean := modules.NewMean()
	if err := mean.Foreprop(); !errors.Is(err, modules.ErrNoInputs) {
		t.Fatalf("want ErrNoInputs, got %v", err)
	}
}

func TestMeanRewireWhileValidErrors(t *testing.T) {
	a := modules.NewConstant(mat.NewDense(1, 1, []float64{1}))
	b := modules.NewConstant(mat.NewDense(1, 1, []float64{2}))
	mean := modules.NewMean()
	if err := mean.RegisterSource(a.Output()); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := a.Foreprop(); err != nil {
		t.Fatalf("foreprop a: %v", err)
	}
	if err := mean.RegisterSource(b.Output()); !errors.Is(err, engine.ErrRewireWhileValid) {
		t.Fatalf("want ErrRewireWhileValid, got %v", err)
	}
}

func TestMeanUnregisterSourceMissingErrors(t *testing.T) {
	a := modules.NewConstant(mat.NewDense(1, 1, []float64{1}))
	mean := modules.NewMean()
	if err := mean.UnregisterSource(a.Output()); !errors.Is(err, engine.ErrUnregisterMissing) {
		t.Fatalf("want ErrUnregisterMissing, got %v", err)
	}
}

func TestMeanJacobianIsScaledIdentity(t *testing.T) {
	a := modules.NewConstant(mat.NewDense(2, 1, []float64{1, 2}))
	b := modules.NewConstant(mat.NewDense(2, 1, []float64{3, 4}))
	mean := modules.NewMean()
	if err := mean.RegisterSource(a.Output()); err != nil {
		t.Fatalf("register a: %v", err)
	}
	if err := mean.RegisterSource(b.Output()); err != nil {
		t.Fatalf("register b: %v", err)
	}
	sink := modules.NewSink()
	engine.Link(mean.Output(), sink.Input())

	if err := a.Foreprop(); err != nil {
		t.Fatalf("foreprop a: %v", err)
	}
	if err := b.Foreprop(); err != nil {
		t.Fatalf("foreprop b: %v", err)
	}
	sink.SeedBackprop(matrix.Identity(2))
	if err := sink.Backprop(); err != nil {
		t.Fatalf("backprop: %v", err)
	}
	want := matrix.Scale(0.5, matrix.Identity(2))
	if !matrix.Equal(a.Output().BackpropValue(), want, 1e-12) {
		t.Fatalf("want 0.5*I, got %v", mat.Formatted(a.Output().BackpropValue()))
	}
	if !matrix.Equal(b.Output().BackpropValue(), want, 1e-12) {
		t.Fatalf("want 0.5*I, got %v", mat.Formatted(b.Output().BackpropValue()))
	}
}
