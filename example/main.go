package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meikuraledutech/chatflow"
	"github.com/meikuraledutech/chatflow/apiexec"
	"github.com/meikuraledutech/chatflow/assistant"
	"github.com/meikuraledutech/chatflow/canvas"
	"github.com/meikuraledutech/chatflow/editor"
	"github.com/meikuraledutech/chatflow/layout"
	"github.com/meikuraledutech/chatflow/memory"
	"github.com/meikuraledutech/chatflow/postgres"
)

func main() {
	ctx := context.Background()

	// Postgres when DATABASE_URL is set, memory otherwise.
	var store chatflow.Store = memory.New()
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(ctx, dbURL)
		if err != nil {
			log.Fatalf("connect: %v", err)
		}
		defer pool.Close()
		store = postgres.New(pool)
	}

	// 1. Create tables
	if err := store.CreateSchema(ctx); err != nil {
		log.Fatalf("schema: %v", err)
	}
	fmt.Println("schema created")

	reg := editor.NewRegistry(store, nil)
	_, ed, err := reg.Create(ctx, "support-bot")
	if err != nil {
		log.Fatalf("create flow: %v", err)
	}

	// ── Build through the assistant tools ─────────────────────────────
	bridge := assistant.NewBridge(ed, nil)
	fmt.Println(bridge.Call(assistant.ToolAddNode, json.RawMessage(`{"id":"greet","data":{"label":"Hi! How can I help?","messageType":"ai"},"x":0,"y":0}`)))
	fmt.Println(bridge.Call(assistant.ToolAddNode, json.RawMessage(`{"id":"ask","data":{"label":"Where is my order?","messageType":"user"},"x":0,"y":100}`)))
	fmt.Println(bridge.Call(assistant.ToolAddNode, json.RawMessage(`{"id":"lookup","data":{"label":"Order lookup"},"x":0,"y":200}`)))
	fmt.Println(bridge.Call(assistant.ToolAddEdge, json.RawMessage(`{"source":"greet","target":"ask"}`)))
	fmt.Println(bridge.Call(assistant.ToolAddEdge, json.RawMessage(`{"source":"ask","target":"lookup"}`)))

	// ── Layout ────────────────────────────────────────────────────────
	ed.RecalculateLayout(layout.LeftToRight)
	fmt.Println("\nafter layout (LR):")
	printJSON(ed.Snapshot().Nodes)

	// ── API execution without a URL marks the node as an error ────────
	exec := apiexec.New(ed)
	if err := exec.Execute(ctx, "lookup"); err != nil {
		log.Fatalf("execute: %v", err)
	}
	n, _ := ed.Node("lookup")
	fmt.Printf("\nlookup: %s %s\n", n.Data.MessageType, n.Data.Payload)

	// ── Canvas: right click, delete the branch ────────────────────────
	cv := canvas.New(ed, exec, nil)
	if err := cv.Handle(canvas.Event{Type: canvas.EventNodeContextMenu, NodeID: "lookup", X: 40, Y: 40}); err != nil {
		log.Fatalf("context menu: %v", err)
	}
	if err := cv.Handle(canvas.Event{Type: canvas.EventMenuAction, Action: "delete"}); err != nil {
		log.Fatalf("menu action: %v", err)
	}
	fmt.Println("\nscene after delete:")
	printJSON(cv.Render())

	// ── Retrieve what the registry persisted ──────────────────────────
	saved, err := store.GetFlow(ctx, "support-bot")
	if err != nil {
		log.Fatalf("get flow: %v", err)
	}
	fmt.Println("\nflow retrieved:")
	printJSON(saved)

	// ── Cleanup ───────────────────────────────────────────────────────
	if err := reg.Delete(ctx, "support-bot"); err != nil {
		log.Fatalf("delete: %v", err)
	}
	fmt.Println("\nflow deleted")
}

func printJSON(v any) {
	out, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(out))
}
