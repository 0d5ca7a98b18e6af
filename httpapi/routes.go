package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/chatflow"
	"github.com/meikuraledutech/chatflow/assistant"
	"github.com/meikuraledutech/chatflow/canvas"
	"github.com/meikuraledutech/chatflow/editor"
	"github.com/meikuraledutech/chatflow/layout"
)

type createFlowRequest struct {
	ID string `json:"id"`
}

type addNodeRequest struct {
	ID   string            `json:"id" validate:"required"`
	Data chatflow.NodeData `json:"data"`
	X    float64           `json:"x"`
	Y    float64           `json:"y"`
}

type addEdgeRequest struct {
	Source string `json:"source" validate:"required"`
	Target string `json:"target" validate:"required"`
}

type changesRequest struct {
	Nodes []editor.NodeChange `json:"nodes"`
	Edges []editor.EdgeChange `json:"edges"`
}

type chatRequest struct {
	Message string `json:"message" validate:"required"`
}

func (s *Server) routes(app *fiber.App) {
	// ── Flows ─────────────────────────────────────────────────────────
	app.Get("/flows", s.listFlows)
	app.Post("/flows", s.createFlow)
	app.Get("/flows/:id", s.getFlow)
	app.Delete("/flows/:id", s.deleteFlow)

	// ── Nodes & edges ─────────────────────────────────────────────────
	app.Post("/flows/:id/nodes", s.addNode)
	app.Patch("/flows/:id/nodes/:nodeId", s.updateNode)
	app.Delete("/flows/:id/nodes/:nodeId", s.deleteNode)
	app.Post("/flows/:id/nodes/:nodeId/regenerate", s.regenerateNode)
	app.Post("/flows/:id/edges", s.addEdge)
	app.Post("/flows/:id/connect", s.connect)
	app.Post("/flows/:id/clear", s.clearFlow)
	app.Post("/flows/:id/changes", s.applyChanges)
	app.Post("/flows/:id/layout", s.recalculateLayout)

	// ── API execution ─────────────────────────────────────────────────
	app.Post("/flows/:id/nodes/:nodeId/execute", s.execute)
	app.Get("/flows/:id/nodes/:nodeId/status", s.status)

	// ── Canvas ────────────────────────────────────────────────────────
	app.Get("/flows/:id/scene", s.scene)
	app.Post("/flows/:id/events", s.event)

	// ── Assistant ─────────────────────────────────────────────────────
	app.Get("/tools", s.listTools)
	app.Post("/flows/:id/tools/:name", s.callTool)
	app.Post("/flows/:id/chat", s.sendChat)

	// ── Files ─────────────────────────────────────────────────────────
	app.Get("/flows/:id/export", s.exportFlow)
	app.Post("/flows/:id/import", s.importFlow)
}

func (s *Server) listFlows(c fiber.Ctx) error {
	ids, err := s.registry.List(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"flows": ids})
}

func (s *Server) createFlow(c fiber.Ctx) error {
	var req createFlowRequest
	if len(c.Body()) > 0 {
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
	}
	id, _, err := s.registry.Create(c.Context(), req.ID)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": id})
}

func (s *Server) getFlow(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(ss.editor.Snapshot())
}

func (s *Server) deleteFlow(c fiber.Ctx) error {
	id := c.Params("id")
	if err := s.registry.Delete(c.Context(), id); err != nil {
		return fail(c, err)
	}
	s.dropSession(id)
	if s.chat != nil {
		s.chat.Reset(id)
	}
	return c.SendStatus(204)
}

func (s *Server) addNode(c fiber.Ctx) error {
	var req addNodeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	msg, err := ss.editor.AddNode(req.ID, req.Data, req.X, req.Y)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": req.ID, "message": msg})
}

func (s *Server) updateNode(c fiber.Ctx) error {
	var patch chatflow.NodeDataPatch
	if err := json.Unmarshal(c.Body(), &patch); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	nodeID := c.Params("nodeId")
	if !ss.editor.UpdateNodeData(nodeID, patch) {
		return fail(c, fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, nodeID))
	}
	n, _ := ss.editor.Node(nodeID)
	return c.JSON(n)
}

func (s *Server) deleteNode(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	nodeID := c.Params("nodeId")
	if !ss.editor.DeleteNodeAndConnectedElements(nodeID) {
		return fail(c, fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, nodeID))
	}
	return c.SendStatus(204)
}

func (s *Server) regenerateNode(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	nodeID := c.Params("nodeId")
	if !ss.editor.RegenerateNode(nodeID) {
		return fail(c, fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, nodeID))
	}
	return c.JSON(ss.editor.Snapshot())
}

func (s *Server) addEdge(c fiber.Ctx) error {
	var req addEdgeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	msg, err := ss.editor.AddEdge(req.Source, req.Target)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(fiber.Map{"id": chatflow.EdgeID(req.Source, req.Target), "message": msg})
}

func (s *Server) connect(c fiber.Ctx) error {
	var conn editor.Connection
	if err := c.Bind().JSON(&conn); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	edge, err := ss.editor.Connect(conn)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(201).JSON(edge)
}

func (s *Server) clearFlow(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(fiber.Map{"message": ss.editor.ClearFlow()})
}

func (s *Server) applyChanges(c fiber.Ctx) error {
	var req changesRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	nodes := ss.editor.ApplyNodeChanges(req.Nodes)
	edges := ss.editor.ApplyEdgeChanges(req.Edges)
	return c.JSON(fiber.Map{"nodes": nodes, "edges": edges})
}

func (s *Server) recalculateLayout(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	ss.editor.RecalculateLayout(layout.ParseDirection(c.Query("direction")))
	return c.JSON(ss.editor.Snapshot())
}

func (s *Server) execute(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	// The call outlives the request.
	if err := ss.executor.ExecuteAsync(context.Background(), c.Params("nodeId")); err != nil {
		return fail(c, err)
	}
	return c.Status(202).JSON(fiber.Map{"running": true})
}

func (s *Server) status(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	nodeID := c.Params("nodeId")
	n, ok := ss.editor.Node(nodeID)
	if !ok {
		return fail(c, fmt.Errorf("%w: %s", chatflow.ErrNodeNotFound, nodeID))
	}
	return c.JSON(fiber.Map{
		"running":     ss.executor.Running(nodeID),
		"messageType": n.Data.MessageType,
		"payload":     n.Data.Payload,
	})
}

func (s *Server) scene(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(ss.canvas.Render())
}

func (s *Server) event(c fiber.Ctx) error {
	var ev canvas.Event
	if err := c.Bind().JSON(&ev); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	if err := ss.canvas.Handle(ev); err != nil {
		return fail(c, err)
	}
	return c.JSON(ss.canvas.Render())
}

func (s *Server) listTools(c fiber.Ctx) error {
	return c.JSON(assistant.Tools)
}

func (s *Server) callTool(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	bridge := assistant.NewBridge(ss.editor, s.logger.With("flow", c.Params("id")))
	return c.JSON(fiber.Map{"result": bridge.Call(c.Params("name"), c.Body())})
}

func (s *Server) sendChat(c fiber.Ctx) error {
	if s.chat == nil {
		return c.Status(503).JSON(fiber.Map{"error": "assistant is not configured"})
	}
	var req chatRequest
	if err := c.Bind().JSON(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
	}
	flowID := c.Params("id")
	ss, err := s.session(c, flowID)
	if err != nil {
		return fail(c, err)
	}
	reply, err := s.chat.Send(c.Context(), flowID, ss.editor, req.Message)
	if err != nil {
		s.logger.Error("assistant chat", "flow", flowID, "err", err)
		return c.Status(statusOfChat(err)).JSON(fiber.Map{"error": err.Error(), "reply": reply})
	}
	return c.JSON(reply)
}

// statusOfChat maps model failures to 502; they are upstream errors.
func statusOfChat(err error) int {
	if code := statusOf(err); code != fiber.StatusInternalServerError {
		return code
	}
	return fiber.StatusBadGateway
}

func (s *Server) exportFlow(c fiber.Ctx) error {
	flowID := c.Params("id")
	ss, err := s.session(c, flowID)
	if err != nil {
		return fail(c, err)
	}
	c.Attachment("flow-" + flowID + ".json")
	return c.JSON(ss.editor.Snapshot())
}

// importFlow replaces the flow with an uploaded file (multipart field "file")
// or a raw JSON body. A body that does not parse leaves the flow unchanged.
func (s *Server) importFlow(c fiber.Ctx) error {
	ss, err := s.session(c, c.Params("id"))
	if err != nil {
		return fail(c, err)
	}

	raw := c.Body()
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "missing file"})
		}
		f, err := fh.Open()
		if err != nil {
			return fail(c, err)
		}
		defer f.Close()
		if raw, err = io.ReadAll(f); err != nil {
			return fail(c, err)
		}
	}

	var flow chatflow.Flow
	if err := json.Unmarshal(raw, &flow); err != nil {
		return c.Status(400).JSON(fiber.Map{"error": "invalid flow file: " + err.Error()})
	}
	if err := ss.editor.SetFlow(flow); err != nil {
		return fail(c, err)
	}
	return c.JSON(ss.editor.Snapshot())
}
