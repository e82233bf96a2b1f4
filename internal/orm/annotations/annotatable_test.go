package annotations

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

func TestAnnotatable_SetFindRemove(t *testing.T) {
	var a Annotatable

	_, err := a.SetAnnotation("x", 42)
	require.NoError(t, err)

	found := a.FindAnnotation("x")
	require.NotNil(t, found)
	assert.Equal(t, 42, found.Value)

	removed, err := a.RemoveAnnotation("x")
	require.NoError(t, err)
	assert.Same(t, found, removed)
	assert.Nil(t, a.FindAnnotation("x"))

	removed, err = a.RemoveAnnotation("x")
	require.NoError(t, err)
	assert.Nil(t, removed)
}

func TestAnnotatable_SetEqualValueIsNoop(t *testing.T) {
	var a Annotatable

	first, err := a.SetAnnotation("x", []string{"a", "b"})
	require.NoError(t, err)

	second, err := a.SetAnnotation("x", []string{"a", "b"})
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Same(t, first, a.FindAnnotation("x"))

	third, err := a.SetAnnotation("x", []string{"c"})
	require.NoError(t, err)
	assert.NotSame(t, first, third)
}

func TestAnnotatable_AddRejectsDuplicates(t *testing.T) {
	var a Annotatable

	_, err := a.AddAnnotation("x", 1)
	require.NoError(t, err)

	_, err = a.AddAnnotation("x", 2)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateAnnotation)
	assert.Equal(t, 1, a.Get("x"))
}

func TestAnnotatable_GetAnnotationsOrderedByName(t *testing.T) {
	var a Annotatable
	for _, name := range []string{"b", "A", "a", "c"} {
		_, err := a.AddAnnotation(name, name)
		require.NoError(t, err)
	}

	var names []string
	for _, annotation := range a.GetAnnotations() {
		names = append(names, annotation.Name)
	}
	assert.Equal(t, []string{"A", "a", "b", "c"}, names)
}

func TestAnnotatable_Indexer(t *testing.T) {
	var a Annotatable

	require.NoError(t, a.Set("x", "v"))
	assert.Equal(t, "v", a.Get("x"))

	require.NoError(t, a.Set("x", nil))
	assert.Nil(t, a.Get("x"))
	assert.Nil(t, a.FindAnnotation("x"))
}

func TestAnnotatable_ReadOnlyContract(t *testing.T) {
	var a Annotatable

	_, err := a.SetRuntimeAnnotation("r", 1)
	assert.ErrorIs(t, err, ErrNotReadOnly)

	_, err = a.AddAnnotation("x", 1)
	require.NoError(t, err)
	a.Freeze()

	_, err = a.AddAnnotation("y", 1)
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = a.SetAnnotation("x", 2)
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = a.RemoveAnnotation("x")
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, a.Set("x", nil), ErrReadOnly)

	_, err = a.AddRuntimeAnnotation("r", 1)
	require.NoError(t, err)
	_, err = a.AddRuntimeAnnotation("r", 2)
	assert.ErrorIs(t, err, ErrDuplicateAnnotation)
}

type ownerStub struct{ readOnly bool }

func (o *ownerStub) IsReadOnly() bool { return o.readOnly }

func TestAnnotatable_OwnerControlsReadOnly(t *testing.T) {
	owner := &ownerStub{}
	var a Annotatable
	a.SetOwner(owner)

	assert.NoError(t, a.EnsureMutable())
	owner.readOnly = true
	assert.ErrorIs(t, a.EnsureMutable(), ErrReadOnly)
	assert.NoError(t, a.EnsureReadOnly())
}

func TestAnnotatable_ConventionPrecedence(t *testing.T) {
	tests := []struct {
		name               string
		existing           ConfigurationSource
		incoming           ConfigurationSource
		overrideSameSource bool
		wantApplied        bool
	}{
		{"higher replaces lower", SourceConvention, SourceExplicit, false, true},
		{"lower never replaces higher", SourceExplicit, SourceConvention, true, false},
		{"data annotation replaces convention", SourceConvention, SourceDataAnnotation, false, true},
		{"same source refused by default", SourceConvention, SourceConvention, false, false},
		{"same source allowed when requested", SourceConvention, SourceConvention, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var a Annotatable
			_, err := a.AddConventionAnnotation("x", "old", tt.existing)
			require.NoError(t, err)

			assert.Equal(t, tt.wantApplied, a.CanSetAnnotation("x", "new", tt.incoming, tt.overrideSameSource))

			annotation, applied, err := a.SetConventionAnnotation("x", "new", tt.incoming, tt.overrideSameSource)
			require.NoError(t, err)
			assert.Equal(t, tt.wantApplied, applied)
			if tt.wantApplied {
				assert.Equal(t, "new", annotation.Value)
			} else {
				assert.Equal(t, "old", a.Get("x"))
			}
		})
	}
}

func TestAnnotatable_EqualValueRaisesSource(t *testing.T) {
	var a Annotatable
	first, err := a.AddConventionAnnotation("x", 1, SourceConvention)
	require.NoError(t, err)

	second, applied, err := a.SetConventionAnnotation("x", 1, SourceExplicit, false)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NotSame(t, first, second)
	assert.Equal(t, SourceExplicit, second.Source)
	assert.Equal(t, SourceConvention, first.Source)
	assert.Same(t, second, a.FindAnnotation("x"))

	third, applied, err := a.SetConventionAnnotation("x", 1, SourceConvention, false)
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Same(t, second, third)
}

func TestAnnotatable_RuntimeAnnotations(t *testing.T) {
	var a Annotatable
	a.Freeze()

	first, err := a.SetRuntimeAnnotation("r", "v1")
	require.NoError(t, err)
	same, err := a.SetRuntimeAnnotation("r", "v1")
	require.NoError(t, err)
	assert.Same(t, first, same)

	_, err = a.SetRuntimeAnnotation("r", "v2")
	require.NoError(t, err)
	assert.Equal(t, "v2", a.FindRuntimeAnnotation("r").Value)

	_, err = a.AddRuntimeAnnotation("a", 1)
	require.NoError(t, err)
	runtime := a.GetRuntimeAnnotations()
	require.Len(t, runtime, 2)
	assert.Equal(t, "a", runtime[0].Name)

	removed, err := a.RemoveRuntimeAnnotation("r")
	require.NoError(t, err)
	assert.Equal(t, "v2", removed.Value)
	assert.Nil(t, a.FindRuntimeAnnotation("r"))
	assert.Empty(t, a.GetAnnotations())
}

func TestAnnotatable_GetOrAddRuntimeValueConcurrent(t *testing.T) {
	var a Annotatable
	a.Freeze()

	var calls atomic.Int32
	results := make([]*int, 64)

	var g errgroup.Group
	for i := range results {
		g.Go(func() error {
			value, err := GetOrAddRuntimeValue(&a, "memo", func() *int {
				calls.Add(1)
				v := 7
				return &v
			})
			if err != nil {
				return err
			}
			results[i] = value
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.GreaterOrEqual(t, calls.Load(), int32(1))
	for _, result := range results {
		assert.Same(t, results[0], result)
	}
}

func TestAnnotatable_GetOrAddRequiresReadOnly(t *testing.T) {
	var a Annotatable
	_, err := a.GetOrAddRuntimeAnnotationValue("memo", func() interface{} { return 1 })
	assert.ErrorIs(t, err, ErrNotReadOnly)
}

func TestAnnotatable_ConcurrentBuildTimeReads(t *testing.T) {
	var a Annotatable
	for i := 0; i < 10; i++ {
		_, err := a.AddAnnotation(fmt.Sprintf("k%d", i), i)
		require.NoError(t, err)
	}
	a.Freeze()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Len(t, a.GetAnnotations(), 10)
		}()
	}
	wg.Wait()
}

func TestConfigurationSource(t *testing.T) {
	assert.True(t, SourceExplicit.Overrides(SourceConvention))
	assert.True(t, SourceConvention.Overrides(SourceConvention))
	assert.False(t, SourceConvention.Overrides(SourceDataAnnotation))
	assert.Equal(t, SourceExplicit, Max(SourceExplicit, SourceConvention))
	assert.Equal(t, "data_annotation", SourceDataAnnotation.String())
}
