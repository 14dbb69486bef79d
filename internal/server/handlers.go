package server

import (
	"errors"
	"fmt"
	"image"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/ironsheep/apriltag-tools/internal/apriltag"
	"github.com/ironsheep/apriltag-tools/internal/imaging"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "apriltag_detect").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments jsoniter.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	log := s.log.WithField("tool", params.Name)
	start := time.Now()
	result, err := s.executeTool(params.Name, params.Arguments)
	if err != nil {
		log.WithError(err).Warn("Tool execution failed")
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}
	log.WithField("elapsed", time.Since(start)).Debug("Tool executed")

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(name string, args jsoniter.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = jsoniter.RawMessage("{}")
	}

	switch name {
	case "apriltag_detect":
		return s.handleDetect(args)
	case "apriltag_families":
		return s.handleFamilies()
	case "apriltag_image_info":
		return s.handleImageInfo(args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Detection ===

type detectArgs struct {
	Path              string               `json:"path"`
	Families          *apriltag.FamilySpec `json:"families"`
	Region            *imaging.Region      `json:"region"`
	Quadrant          string               `json:"quadrant"`
	WantVisualization bool                 `json:"want_visualization"`
	Annotate          bool                 `json:"annotate"`
}

// DetectResult is the apriltag_detect tool result. Detection coordinates are
// always in full-image pixels; the visualization covers only the searched
// region.
type DetectResult struct {
	Path          string                `json:"path"`
	Width         int                   `json:"width"`
	Height        int                   `json:"height"`
	Region        *imaging.Region       `json:"region,omitempty"`
	Count         int                   `json:"count"`
	Detections    []apriltag.Detection  `json:"detections"`
	Visualization *imaging.EncodedImage `json:"visualization,omitempty"`
	Annotated     *imaging.EncodedImage `json:"annotated,omitempty"`
}

func (s *Server) handleDetect(args jsoniter.RawMessage) (interface{}, error) {
	var a detectArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	if a.Region != nil && a.Quadrant != "" {
		return nil, errors.New("region and quadrant are mutually exclusive")
	}

	img, err := s.cache.Load(a.Path)
	if err != nil {
		return nil, err
	}
	bounds := img.Bounds()

	region, err := resolveRegion(bounds, a.Region, a.Quadrant)
	if err != nil {
		return nil, err
	}
	src := img
	if region != nil {
		if src, err = imaging.Crop(img, *region); err != nil {
			return nil, err
		}
	}
	gray := imaging.ToGray(src)

	dets, vis, err := s.detect(gray, a.Families, a.WantVisualization)
	if err != nil {
		return nil, err
	}

	// The detector reports pixels relative to the searched image's origin.
	origin := bounds.Min
	if region != nil {
		origin = image.Pt(region.X1, region.Y1)
	}
	if origin != (image.Point{}) {
		for i := range dets {
			dets[i] = dets[i].Translate(float64(origin.X), float64(origin.Y))
		}
	}

	result := &DetectResult{
		Path:       a.Path,
		Width:      bounds.Dx(),
		Height:     bounds.Dy(),
		Region:     region,
		Count:      len(dets),
		Detections: dets,
	}
	if vis != nil {
		if result.Visualization, err = imaging.EncodePNG(vis); err != nil {
			return nil, err
		}
	}
	if a.Annotate {
		if result.Annotated, err = imaging.EncodePNG(imaging.Annotate(img, dets)); err != nil {
			return nil, err
		}
	}

	s.log.WithFields(logrus.Fields{
		"path":  a.Path,
		"count": len(dets),
	}).Info("Detection complete")
	return result, nil
}

// detect runs the shared detector under the server lock. When families is
// set, missing families are registered first and the results are filtered
// down to the requested ones. Unrecognized names are logged and skipped; the
// call fails only when none of the requested families exist.
func (s *Server) detect(gray *image.Gray, families *apriltag.FamilySpec, wantVisual bool) ([]apriltag.Detection, *image.Gray, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var want map[string]bool
	if families != nil {
		names := families.Resolve(s.detector.Families())
		if len(names) == 0 {
			return nil, nil, fmt.Errorf("%w: %s", apriltag.ErrUnrecognizedFamily, families)
		}
		want = make(map[string]bool, len(names))
		for _, name := range names {
			if err := s.detector.AddFamily(name); err != nil {
				if errors.Is(err, apriltag.ErrUnrecognizedFamily) {
					s.log.WithField("family", name).Warn("unrecognized tag family, skipping")
					continue
				}
				return nil, nil, err
			}
			want[name] = true
		}
		if len(want) == 0 {
			return nil, nil, fmt.Errorf("%w: none of %s", apriltag.ErrUnrecognizedFamily, families)
		}
	}

	var (
		dets []apriltag.Detection
		vis  *image.Gray
		err  error
	)
	if wantVisual {
		dets, vis, err = s.detector.DetectWithVisualization(gray)
	} else {
		dets, err = s.detector.Detect(gray)
	}
	if err != nil {
		return nil, nil, err
	}

	if want != nil {
		kept := dets[:0]
		for _, d := range dets {
			if want[d.Family] {
				kept = append(kept, d)
			}
		}
		dets = kept
	}
	if dets == nil {
		dets = []apriltag.Detection{}
	}
	return dets, vis, nil
}

func resolveRegion(bounds image.Rectangle, region *imaging.Region, quadrant string) (*imaging.Region, error) {
	switch {
	case region != nil:
		r := *region
		return &r, nil
	case quadrant != "":
		r, err := imaging.NamedRegion(bounds, quadrant)
		if err != nil {
			return nil, err
		}
		return &r, nil
	default:
		return nil, nil
	}
}

// === Families ===

// FamiliesResult is the apriltag_families tool result.
type FamiliesResult struct {
	Available  []string `json:"available"`
	Registered []string `json:"registered"`
}

func (s *Server) handleFamilies() (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &FamiliesResult{
		Available:  s.detector.Families(),
		Registered: s.detector.Registered(),
	}, nil
}

// === Image Information ===

type imageInfoArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageInfo(args jsoniter.RawMessage) (interface{}, error) {
	var a imageInfoArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}
