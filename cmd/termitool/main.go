// Terminal dashboard bundling dataset conversion, video tooling, model hub
// clients, Android helpers and system utilities behind one hierarchical
// menu.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/KhanhRomVN/termi-tool/applog"
	"github.com/KhanhRomVN/termi-tool/config"
	"github.com/KhanhRomVN/termi-tool/menu"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintln(os.Stderr, "Configuration error:", err)
		os.Exit(1)
	}
	applog.Init(cfg.LogDir)

	// Ctrl-C anywhere behaves like choosing 0 from the menu.
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		fmt.Println("\nGoodbye!")
		os.Exit(0)
	}()

	applog.Info(applog.Fields{"pid": os.Getpid()}, "termi-tool started")

	if err := menu.New(buildMenu(cfg), os.Stdin, os.Stdout).Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Menu error:", err)
		os.Exit(1)
	}
}
