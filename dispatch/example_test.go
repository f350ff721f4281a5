package dispatch_test

import (
	"context"
	"fmt"

	"github.com/on-the-ground/dispatch_ive_go/dispatch"
	"github.com/on-the-ground/dispatch_ive_go/dispatch/model"
	"go.uber.org/zap"
)

func ExampleEngine_Call() {
	config := dispatch.NewConfig(1, 0)
	config.Logger = zap.NewNop()
	engine, err := dispatch.NewEngine(config)
	if err != nil {
		panic(err)
	}

	engine.Class(model.ClassSpec{Name: "Animal"})
	engine.Class(model.ClassSpec{Name: "Dog", Parents: []string{"Animal"}})
	engine.Class(model.ClassSpec{Name: "Cat", Parents: []string{"Animal"}})
	engine.DefineGeneric("meet", 2)
	engine.Register("meet", model.Signature{"Animal", "Animal"}, func(ctx context.Context, args ...any) (any, error) {
		return "sniff", nil
	})
	engine.Register("meet", model.Signature{"Dog", "Cat"}, func(ctx context.Context, args ...any) (any, error) {
		return "chase", nil
	})

	ctx := context.Background()
	dog, _ := engine.NewObject("Dog", nil)
	cat, _ := engine.NewObject("Cat", nil)

	fmt.Println(engine.Call(ctx, "meet", dog, cat))
	fmt.Println(engine.Call(ctx, "meet", cat, dog))
	// Output:
	// chase <nil>
	// sniff <nil>
}
