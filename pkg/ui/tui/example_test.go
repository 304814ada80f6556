package tui_test

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"goingviral/pkg/mockdata"
	"goingviral/pkg/ui/tui"
)

func ExampleDemoLoader() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen := mockdata.New(42, nil)
	dashboard := tui.New(ctx, tui.DemoLoader(gen, mockdata.DefaultPostCount, 30))

	if err := dashboard.Start(); err != nil {
		fmt.Printf("dashboard error: %v\n", err)
	}
}

func ExampleSparkline() {
	fmt.Println(tui.Sparkline([]int64{1, 2, 3, 4, 5, 6, 7, 8}, 8))
	// Output: ▁▂▃▄▅▆▇█
}
