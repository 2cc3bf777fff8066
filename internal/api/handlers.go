package api

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/rbramwell/halin/internal/engine"
	"github.com/rbramwell/halin/internal/format"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/security"
)

// MemberView is one entry of GET /api/members.
type MemberView struct {
	ID        string   `json:"id"`
	Label     string   `json:"label"`
	Role      string   `json:"role"`
	Database  string   `json:"database"`
	Addresses []string `json:"addresses"`
	Protocols []string `json:"protocols"`

	ObservedRole string    `json:"observed_role,omitempty"`
	LatencyMS    float64   `json:"latency_ms"`
	LastError    string    `json:"last_error,omitempty"`
	ObservedAt   time.Time `json:"observed_at,omitzero"`
}

func (s *Server) members(c *fiber.Ctx) error {
	members := s.c.Members()
	out := make([]MemberView, 0, len(members))
	for _, n := range members {
		v := MemberView{
			ID:        n.ID(),
			Label:     n.Label(),
			Role:      string(n.Role()),
			Database:  n.Database(),
			Addresses: n.Addresses(),
			Protocols: n.Protocols(),
		}
		if o, ok := n.Observations().Latest(); ok {
			v.ObservedRole = string(o.Role)
			v.LatencyMS = float64(o.Latency) / float64(time.Millisecond)
			v.LastError = o.Err
			v.ObservedAt = o.Timestamp
		}
		out = append(out, v)
	}
	return c.JSON(out)
}

// CapabilitiesView is the body of GET /api/capabilities.
type CapabilitiesView struct {
	model.Capabilities
	Enterprise bool `json:"enterprise"`
	APOC       bool `json:"apoc"`
	Metrics    bool `json:"metrics"`
	Algorithms bool `json:"algorithms"`
	LogStream  bool `json:"log_stream"`
}

func (s *Server) capabilities(c *fiber.Ctx) error {
	caps := s.c.Capabilities()
	return c.JSON(CapabilitiesView{
		Capabilities: caps,
		Enterprise:   caps.IsEnterprise(),
		APOC:         caps.SupportsAPOC(),
		Metrics:      caps.SupportsMetrics(),
		Algorithms:   caps.SupportsAlgorithms(),
		LogStream:    caps.SupportsLogStream(),
	})
}

func (s *Server) diagnostics(c *fiber.Ctx) error {
	pkg := engine.RunDiagnostics(c.UserContext(), s.c)
	switch c.Query("format", "json") {
	case "csv":
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		c.Set(fiber.HeaderContentDisposition, `attachment; filename="halin-diagnostics.csv"`)
		return format.WriteCSV(c.Response().BodyWriter(), pkg.Records)
	case "json":
		return c.JSON(pkg)
	default:
		return fiber.NewError(fiber.StatusBadRequest, "format must be json or csv")
	}
}

// PublishResponse is the body of POST /api/diagnostics/publish.
type PublishResponse struct {
	ID      string `json:"id"`
	Records int    `json:"records"`
}

func (s *Server) publishDiagnostics(c *fiber.Ctx) error {
	if s.exporter == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "publishing is not configured")
	}
	pkg := engine.RunDiagnostics(c.UserContext(), s.c)
	id, err := s.exporter.Export(c.UserContext(), pkg)
	if err != nil {
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	}
	return c.Status(fiber.StatusAccepted).JSON(PublishResponse{ID: id, Records: len(pkg.Records)})
}

// AdviceResponse is the body of GET /api/advice.
type AdviceResponse struct {
	GeneratedAt time.Time                `json:"generated_at"`
	Results     []model.InspectionResult `json:"results"`
}

func (s *Server) advice(c *fiber.Ctx) error {
	pkg := engine.RunDiagnostics(c.UserContext(), s.c)
	return c.JSON(AdviceResponse{
		GeneratedAt: pkg.GeneratedAt,
		Results:     s.advisor.Evaluate(pkg),
	})
}

func (s *Server) listUsers(c *fiber.Ctx) error {
	users, err := s.security.ListUsers(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(users)
}

func (s *Server) listRoles(c *fiber.Ctx) error {
	roles, err := s.security.ListRoles(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(roles)
}

func (s *Server) deleteUser(c *fiber.Ctx) error {
	name := c.Params("username")
	res, err := s.security.DeleteUser(c.UserContext(), name)
	if err != nil {
		return err
	}
	return clusterOpReply(c, security.FromClusterOp("Deleting user "+name, res))
}

func (s *Server) deleteRole(c *fiber.Ctx) error {
	name := c.Params("role")
	res, err := s.security.DeleteRole(c.UserContext(), name)
	if err != nil {
		return err
	}
	return clusterOpReply(c, security.FromClusterOp("Deleting role "+name, res))
}

func clusterOpReply(c *fiber.Ctx, st security.Status) error {
	code := fiber.StatusOK
	if st.IsError {
		code = fiber.StatusMultiStatus
	}
	return c.Status(code).JSON(st)
}

func (s *Server) samples(c *fiber.Ctx) error {
	out, err := s.sampler.SampleAll(c.UserContext(), c.Params("feature"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (s *Server) member(c *fiber.Ctx) (*model.ClusterNode, error) {
	n, ok := s.c.Member(c.Params("id"))
	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, "unknown member "+c.Params("id"))
	}
	return n, nil
}

func (s *Server) memberSample(c *fiber.Ctx) error {
	n, err := s.member(c)
	if err != nil {
		return err
	}
	out, err := s.sampler.Sample(c.UserContext(), n, c.Params("feature"))
	if err != nil {
		return err
	}
	return c.JSON(out)
}

func (s *Server) memberMetric(c *fiber.Ctx) error {
	n, err := s.member(c)
	if err != nil {
		return err
	}
	last := c.QueryInt("last", 10)
	if last <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "last must be positive")
	}
	out, err := s.sampler.Metric(c.UserContext(), n, c.Params("metric"), last)
	if err != nil {
		return err
	}
	return c.JSON(out)
}
