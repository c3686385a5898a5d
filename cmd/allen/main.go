package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/motern88/allen/internal/api"
	"github.com/motern88/allen/internal/config"
	"github.com/motern88/allen/internal/mas"
)

const shutdownGrace = 10 * time.Second

func main() {
	config.LoadEnv()

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║       Allen — multi-agent runtime    ║")
	fmt.Println("╚══════════════════════════════════════╝")

	configDir := os.Getenv("ALLEN_CONFIG_DIR")
	if configDir == "" {
		configDir, _ = os.Getwd()
	}
	fmt.Printf("📂 Config: %s\n", configDir)

	toolServersPath := os.Getenv("ALLEN_TOOL_SERVERS")
	if toolServersPath == "" {
		toolServersPath = filepath.Join(configDir, "tool_servers.yaml")
		if _, err := os.Stat(toolServersPath); err != nil {
			toolServersPath = ""
		}
	}

	defaultLLMPath := os.Getenv("ALLEN_DEFAULT_LLM")
	if defaultLLMPath == "" {
		defaultLLMPath = filepath.Join(configDir, "default_llm.yaml")
		if _, err := os.Stat(defaultLLMPath); err != nil {
			defaultLLMPath = ""
		}
	}

	dialogueCapacity := 0
	if v := os.Getenv("ALLEN_DIALOGUE_CAPACITY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			dialogueCapacity = n
		} else {
			log.Printf("⚠️ Invalid ALLEN_DIALOGUE_CAPACITY=%q, using default", v)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sys, err := mas.New(ctx, mas.Config{
		RolesDir:         configDir,
		ToolServersPath:  toolServersPath,
		DefaultLLMPath:   defaultLLMPath,
		DialogueCapacity: dialogueCapacity,
	})
	if err != nil {
		log.Fatalf("❌ Failed to start runtime: %v", err)
	}
	defer sys.Shutdown()
	fmt.Printf("🤖 Manager agent: %s\n", sys.ManagerID())

	addr := os.Getenv("ALLEN_LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := api.NewHandler(sys)
	server := &http.Server{Addr: addr, Handler: handler}

	go func() {
		fmt.Printf("🌐 Accessor surface listening on %s\n", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	fmt.Println("🛑 Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(ctx, shutdownGrace)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("⚠️ Server shutdown: %v", err)
	}
}
