package dispatch_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/on-the-ground/dispatch_ive_go/dispatch"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/internal/logtest"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) *dispatch.Engine {
	t.Helper()
	config := dispatch.NewConfig(4, 0)
	config.Logger = logtest.NewLogger()
	e, err := dispatch.NewEngine(config)
	require.NoError(t, err)
	return e
}

func returning(v any) model.Impl {
	return func(context.Context, ...any) (any, error) { return v, nil }
}

// newZoo defines Animal <- Dog, Animal <- Cat and a one-argument "speak".
func newZoo(t *testing.T) *dispatch.Engine {
	t.Helper()
	e := newEngine(t)
	for _, spec := range []model.ClassSpec{
		{Name: "Animal", Properties: []model.Property{{Name: "name", Class: model.ClassCharacter}}},
		{Name: "Dog", Parents: []string{"Animal"}},
		{Name: "Cat", Parents: []string{"Animal"}},
	} {
		_, err := e.Class(spec)
		require.NoError(t, err)
	}
	_, err := e.DefineGeneric("speak", 1)
	require.NoError(t, err)
	return e
}

func mustObject(t *testing.T, e *dispatch.Engine, class string) *dispatch.Object {
	t.Helper()
	obj, err := e.NewObject(class, nil)
	require.NoError(t, err)
	return obj
}

func TestEngine_AncestorsOfLinearChain(t *testing.T) {
	e := newEngine(t)
	for _, spec := range []model.ClassSpec{
		{Name: "A"},
		{Name: "B", Parents: []string{"A"}},
		{Name: "C", Parents: []string{"B"}},
	} {
		_, err := e.Class(spec)
		require.NoError(t, err)
	}

	seq, err := e.Ancestors("C")
	require.NoError(t, err)
	var chain []string
	for c := range seq {
		chain = append(chain, c.Name())
	}
	assert.Equal(t, []string{"C", "B", "A"}, chain)
}

func TestEngine_MostSpecificWins(t *testing.T) {
	e := newZoo(t)
	_, err := e.Register("speak", model.Signature{"Animal"}, returning("..."))
	require.NoError(t, err)
	_, err = e.Register("speak", model.Signature{"Dog"}, returning("woof"))
	require.NoError(t, err)

	ctx := context.Background()
	v, err := e.Call(ctx, "speak", mustObject(t, e, "Dog"))
	require.NoError(t, err)
	assert.Equal(t, "woof", v)

	v, err = e.Call(ctx, "speak", mustObject(t, e, "Cat"))
	require.NoError(t, err)
	assert.Equal(t, "...", v)
}

func TestEngine_CrossedSignaturesAreAmbiguous(t *testing.T) {
	e := newZoo(t)
	_, err := e.DefineGeneric("meet", 2)
	require.NoError(t, err)
	_, err = e.Register("meet", model.Signature{"Dog", model.Any}, returning("dog first"))
	require.NoError(t, err)
	_, err = e.Register("meet", model.Signature{model.Any, "Cat"}, returning("cat second"))
	require.NoError(t, err)

	_, err = e.Call(context.Background(), "meet", mustObject(t, e, "Dog"), mustObject(t, e, "Cat"))

	var ambiguous *model.AmbiguousDispatchError
	require.True(t, errors.As(err, &ambiguous))
	assert.Equal(t, "meet", ambiguous.Generic)
	assert.Equal(t, []string{"Dog", "Cat"}, ambiguous.Classes)
	assert.Len(t, ambiguous.Candidates, 2)

	// the same failure is served from the cache
	_, err = e.Call(context.Background(), "meet", mustObject(t, e, "Dog"), mustObject(t, e, "Cat"))
	assert.ErrorIs(t, err, model.ErrAmbiguousDispatch)
	assert.Equal(t, uint64(1), e.CacheStats().Hits)
}

func TestEngine_NoApplicableMethod(t *testing.T) {
	e := newZoo(t)
	_, err := e.Register("speak", model.Signature{"Dog"}, returning("woof"))
	require.NoError(t, err)

	_, err = e.Call(context.Background(), "speak", mustObject(t, e, "Cat"))

	var none *model.NoApplicableMethodError
	require.True(t, errors.As(err, &none))
	assert.Equal(t, "speak", none.Generic)
	assert.Equal(t, []string{"Cat"}, none.Classes)
}

func TestEngine_UnknownGeneric(t *testing.T) {
	e := newZoo(t)

	_, err := e.Call(context.Background(), "fly", mustObject(t, e, "Dog"))
	assert.ErrorIs(t, err, model.ErrUnknownGeneric)
}

func TestEngine_NewMethodInvalidatesCachedResolution(t *testing.T) {
	e := newZoo(t)
	ctx := context.Background()
	dog := mustObject(t, e, "Dog")

	_, err := e.Register("speak", model.Signature{"Animal"}, returning("..."))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		v, err := e.Call(ctx, "speak", dog)
		require.NoError(t, err)
		assert.Equal(t, "...", v)
	}
	assert.Equal(t, uint64(2), e.CacheStats().Hits)

	_, err = e.Register("speak", model.Signature{"Dog"}, returning("woof"))
	require.NoError(t, err)

	v, err := e.Call(ctx, "speak", dog)
	require.NoError(t, err)
	assert.Equal(t, "woof", v)
}

func TestEngine_NewMethodReplacesCachedFailure(t *testing.T) {
	e := newZoo(t)
	ctx := context.Background()
	cat := mustObject(t, e, "Cat")

	_, err := e.Call(ctx, "speak", cat)
	require.ErrorIs(t, err, model.ErrNoApplicableMethod)

	_, err = e.Register("speak", model.Signature{"Cat"}, returning("meow"))
	require.NoError(t, err)

	v, err := e.Call(ctx, "speak", cat)
	require.NoError(t, err)
	assert.Equal(t, "meow", v)
}

func TestEngine_ClassRedefinitionInvalidates(t *testing.T) {
	e := newZoo(t)
	ctx := context.Background()
	_, err := e.Class(model.ClassSpec{Name: "Pet"})
	require.NoError(t, err)
	_, err = e.Register("speak", model.Signature{"Animal"}, returning("animal"))
	require.NoError(t, err)
	_, err = e.Register("speak", model.Signature{"Pet"}, returning("pet"))
	require.NoError(t, err)

	dog := mustObject(t, e, "Dog")
	v, err := e.Call(ctx, "speak", dog)
	require.NoError(t, err)
	assert.Equal(t, "animal", v)

	_, err = e.Class(model.ClassSpec{Name: "Dog", Parents: []string{"Pet", "Animal"}, Replace: true})
	require.NoError(t, err)

	v, err = e.Call(ctx, "speak", dog)
	require.NoError(t, err)
	assert.Equal(t, "pet", v)
}

func TestEngine_RepeatedCallsResolveToSameMethod(t *testing.T) {
	e := newZoo(t)
	_, err := e.Register("speak", model.Signature{"Animal"}, returning("..."))
	require.NoError(t, err)
	dog := mustObject(t, e, "Dog")

	first, err := e.Resolve("speak", dog)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		m, err := e.Resolve("speak", dog)
		require.NoError(t, err)
		assert.Same(t, first, m)
	}

	uncached := newZooWithoutCache(t)
	_, err = uncached.Register("speak", model.Signature{"Animal"}, returning("..."))
	require.NoError(t, err)
	dog = mustObject(t, uncached, "Dog")
	first, err = uncached.Resolve("speak", dog)
	require.NoError(t, err)
	second, err := uncached.Resolve("speak", dog)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Zero(t, uncached.CacheStats().Hits)
}

func newZooWithoutCache(t *testing.T) *dispatch.Engine {
	t.Helper()
	config := dispatch.NewConfig(1, 0)
	config.DisableCache = true
	config.Logger = logtest.NewLogger()
	e, err := dispatch.NewEngine(config)
	require.NoError(t, err)
	_, err = e.Class(model.ClassSpec{Name: "Animal"})
	require.NoError(t, err)
	_, err = e.Class(model.ClassSpec{Name: "Dog", Parents: []string{"Animal"}})
	require.NoError(t, err)
	_, err = e.DefineGeneric("speak", 1)
	require.NoError(t, err)
	return e
}

func TestEngine_ResolveDoesNotInvoke(t *testing.T) {
	e := newZoo(t)
	called := false
	m, err := e.Register("speak", model.Signature{"Dog"}, func(context.Context, ...any) (any, error) {
		called = true
		return nil, nil
	})
	require.NoError(t, err)

	got, err := e.Resolve("speak", mustObject(t, e, "Dog"))
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)
	assert.False(t, called)
}

func TestEngine_ResolveClasses(t *testing.T) {
	e := newZoo(t)
	m, err := e.Register("speak", model.Signature{"Animal"}, returning("..."))
	require.NoError(t, err)

	got, err := e.ResolveClasses("speak", "Dog")
	require.NoError(t, err)
	assert.Equal(t, m.ID, got.ID)

	_, err = e.ResolveClasses("speak", "Unicorn")
	assert.ErrorIs(t, err, model.ErrUnknownClass)

	_, err = e.ResolveClasses("speak", "Dog", "Cat")
	assert.ErrorIs(t, err, model.ErrArityMismatch)
}

func TestEngine_MethodIntrospection(t *testing.T) {
	e := newZoo(t)
	_, err := e.Register("speak", model.Signature{"Dog"}, returning("woof"))
	require.NoError(t, err)
	_, err = e.Register("speak", model.Signature{"Cat"}, returning("meow"))
	require.NoError(t, err)

	m, err := e.Method("speak", "Dog")
	require.NoError(t, err)
	assert.Equal(t, "speak(Dog)", m.String())

	all, err := e.Methods("speak")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, model.Signature{"Cat"}, all[0].Signature)
	assert.Equal(t, model.Signature{"Dog"}, all[1].Signature)

	assert.Equal(t, []model.Generic{{Name: "speak", Arity: 1}}, e.Generics())
}

func TestEngine_ImplementationErrorIsReturned(t *testing.T) {
	e := newZoo(t)
	boom := errors.New("boom")
	_, err := e.Register("speak", model.Signature{"Dog"}, func(context.Context, ...any) (any, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, err = e.Call(context.Background(), "speak", mustObject(t, e, "Dog"))
	assert.ErrorIs(t, err, boom)
}

func TestEngine_MethodReceivesAllArguments(t *testing.T) {
	e := newZoo(t)
	_, err := e.Register("speak", model.Signature{"Dog"}, func(ctx context.Context, args ...any) (any, error) {
		return fmt.Sprintf("%d args, loud=%v", len(args), args[1]), nil
	})
	require.NoError(t, err)

	v, err := e.Call(context.Background(), "speak", mustObject(t, e, "Dog"), true)
	require.NoError(t, err)
	assert.Equal(t, "2 args, loud=true", v)
}

func TestEngine_ConcurrentCallsAndRegistrations(t *testing.T) {
	e := newZoo(t)
	ctx := context.Background()
	_, err := e.Register("speak", model.Signature{"Animal"}, returning("animal"))
	require.NoError(t, err)
	dog := mustObject(t, e, "Dog")

	var wg sync.WaitGroup
	numCallers := 20
	wg.Add(numCallers + 1)

	for i := 0; i < numCallers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				v, err := e.Call(ctx, "speak", dog)
				if !assert.NoError(t, err) {
					return
				}
				assert.Contains(t, []any{"animal", "dog"}, v)
			}
		}()
	}
	go func() {
		defer wg.Done()
		for j := 0; j < 20; j++ {
			_, err := e.Register("speak", model.Signature{"Dog"}, returning("dog"))
			assert.NoError(t, err)
		}
	}()
	wg.Wait()

	v, err := e.Call(ctx, "speak", dog)
	require.NoError(t, err)
	assert.Equal(t, "dog", v, "no stale resolution survives the last registration")
}

func TestEngine_History(t *testing.T) {
	config := dispatch.NewConfig(1, 3)
	config.Logger = logtest.NewLogger()
	e, err := dispatch.NewEngine(config)
	require.NoError(t, err)

	_, err = e.Class(model.ClassSpec{Name: "A"})
	require.NoError(t, err)
	_, err = e.DefineGeneric("g", 1)
	require.NoError(t, err)
	_, err = e.Register("g", model.Signature{"A"}, returning(nil))
	require.NoError(t, err)
	_, err = e.Class(model.ClassSpec{Name: "B"})
	require.NoError(t, err)

	revisions := e.History()
	require.Len(t, revisions, 3)
	assert.Equal(t, dispatch.RevisionGeneric, revisions[0].Kind)
	assert.Equal(t, dispatch.RevisionMethod, revisions[1].Kind)
	assert.Equal(t, "g(A)", revisions[1].Name)
	assert.Equal(t, dispatch.RevisionClass, revisions[2].Kind)
	assert.Equal(t, "B", revisions[2].Name)
	assert.LessOrEqual(t, revisions[1].Generation, revisions[2].Generation)
	assert.False(t, revisions[2].Span.Start().After(revisions[2].Span.End()))
}

func TestEngine_HistorySkipsUnchangedDefinitions(t *testing.T) {
	e := newEngine(t)
	spec := model.ClassSpec{Name: "A"}

	for i := 0; i < 3; i++ {
		_, err := e.Class(spec)
		require.NoError(t, err)
		_, err = e.DefineGeneric("g", 1)
		require.NoError(t, err)
	}

	revisions := e.History()
	require.Len(t, revisions, 2)
	assert.Equal(t, dispatch.RevisionClass, revisions[0].Kind)
	assert.Equal(t, dispatch.RevisionGeneric, revisions[1].Kind)
}

func TestEngine_HistoryFollowsCommitOrder(t *testing.T) {
	e := newZoo(t)
	numWriters := 8

	var wg sync.WaitGroup
	wg.Add(numWriters)
	for i := 0; i < numWriters; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 10; j++ {
				_, err := e.Register("speak", model.Signature{"Dog"}, returning(j))
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	revisions := e.History()
	require.Len(t, revisions, 64)
	for i := 1; i < len(revisions); i++ {
		assert.Equal(t, revisions[i-1].Generation+1, revisions[i].Generation)
	}
	assert.Equal(t, e.CacheStats().Generation, revisions[len(revisions)-1].Generation)
}

func TestEngine_ConcurrentClassWithSameDefinition(t *testing.T) {
	e := newEngine(t)
	spec := model.ClassSpec{Name: "Shared", Properties: []model.Property{{Name: "n", Class: model.ClassInteger}}}
	numCallers := 16

	classes := make([]*model.Class, numCallers)
	var wg sync.WaitGroup
	wg.Add(numCallers)
	for i := 0; i < numCallers; i++ {
		go func() {
			defer wg.Done()
			c, err := e.Class(spec)
			assert.NoError(t, err)
			classes[i] = c
		}()
	}
	wg.Wait()

	for _, c := range classes {
		assert.Same(t, classes[0], c)
	}
	revisions := e.History()
	require.Len(t, revisions, 1)
	assert.Equal(t, "Shared", revisions[0].Name)
}

func TestCall_NilObjectDispatchesAsNull(t *testing.T) {
	e := newZoo(t)
	_, err := e.Register("speak", model.Signature{model.Any}, returning("any"))
	require.NoError(t, err)

	ctx := context.Background()
	var dog *dispatch.Object

	v, err := e.Call(ctx, "speak", dog)
	require.NoError(t, err)
	assert.Equal(t, "any", v)

	_, err = e.Register("speak", model.Signature{model.ClassNull}, returning("null"))
	require.NoError(t, err)
	v, err = e.Call(ctx, "speak", dog)
	require.NoError(t, err)
	assert.Equal(t, "null", v)

	ok, err := e.Inherits(dog, "Animal")
	require.NoError(t, err)
	assert.False(t, ok)
}
