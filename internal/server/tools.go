package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

var quadrantNames = []string{
	"top-left", "top-right", "bottom-left", "bottom-right",
	"top-half", "bottom-half", "left-half", "right-half", "center",
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: "apriltag_detect",
			Description: "Detect AprilTag fiducial markers in an image file. Returns each tag's family, id, " +
				"decoding quality, homography, center and corner coordinates in full-image pixels. " +
				"Optionally restrict the search to a region and return the library's visualization " +
				"or an annotated copy of the image.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
					"families": map[string]interface{}{
						"oneOf": []interface{}{
							map[string]interface{}{"type": "string"},
							map[string]interface{}{
								"type":  "array",
								"items": map[string]interface{}{"type": "string"},
							},
						},
						"description": "Only report these tag families: \"all\", a list of names, or a " +
							"comma/space separated string. Families not yet registered are added to the detector.",
					},
					"region": map[string]interface{}{
						"type": "object",
						"properties": map[string]interface{}{
							"x1": map[string]interface{}{"type": "integer", "description": "Left edge X coordinate (0-based)"},
							"y1": map[string]interface{}{"type": "integer", "description": "Top edge Y coordinate (0-based)"},
							"x2": map[string]interface{}{"type": "integer", "description": "Right edge X coordinate (exclusive)"},
							"y2": map[string]interface{}{"type": "integer", "description": "Bottom edge Y coordinate (exclusive)"},
						},
						"required":    []string{"x1", "y1", "x2", "y2"},
						"description": "Optional rectangle to search",
					},
					"quadrant": map[string]interface{}{
						"type":        "string",
						"enum":        quadrantNames,
						"description": "Optional named region to search. Mutually exclusive with region.",
					},
					"want_visualization": map[string]interface{}{
						"type":        "boolean",
						"description": "Return the native library's detection overlay as base64 PNG. Default false",
						"default":     false,
					},
					"annotate": map[string]interface{}{
						"type":        "boolean",
						"description": "Return a color copy of the image with each tag outlined and labelled. Default false",
						"default":     false,
					},
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "apriltag_families",
			Description: "List the tag families known to the native library and the families the detector currently decodes.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "apriltag_image_info",
			Description: "Get the width, height, format and file size of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the image file",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
