package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// sizeProperties are the resize arguments shared by several tools.
func sizeProperties() map[string]interface{} {
	return map[string]interface{}{
		"width": map[string]interface{}{
			"type":        "integer",
			"description": "Target width in pixels",
		},
		"height": map[string]interface{}{
			"type":        "integer",
			"description": "Target height in pixels",
		},
		"max_width": map[string]interface{}{
			"type":        "integer",
			"description": "Upper bound on the output width",
		},
		"max_height": map[string]interface{}{
			"type":        "integer",
			"description": "Upper bound on the output height",
		},
		"size": map[string]interface{}{
			"type":        "string",
			"description": "Target size shorthand such as \"960x540\", \"960x\" or \"x540\"",
		},
		"stretch": map[string]interface{}{
			"type":        "boolean",
			"description": "Use the target size as-is instead of preserving the aspect ratio",
			"default":     false,
		},
	}
}

func withProperties(base map[string]interface{}, extra map[string]interface{}) map[string]interface{} {
	for k, v := range extra {
		base[k] = v
	}
	return base
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Conversion
		{
			Name:        "image_convert",
			Description: "Convert an image (file path, http(s) URL or data URL) to another format and/or size. Blobs already in the requested type are returned untouched unless force is set.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(sizeProperties(), map[string]interface{}{
					"source": map[string]interface{}{
						"type":        "string",
						"description": "Path, URL or data URL of the image",
					},
					"sources": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Several sources; only the first is converted unless multiple is set",
					},
					"multiple": map[string]interface{}{
						"type":        "boolean",
						"description": "Convert every source and return the results in input order",
						"default":     false,
					},
					"type": map[string]interface{}{
						"type":        "string",
						"description": "Output MIME type: image/png, image/jpeg, image/gif, image/webp, image/bmp or image/tiff",
					},
					"quality": map[string]interface{}{
						"type":        "number",
						"description": "Encoder quality between 0 and 1 for image/jpeg and image/webp. Default 1",
					},
					"force": map[string]interface{}{
						"type":        "boolean",
						"description": "Re-encode even when the source already has the requested type",
						"default":     false,
					},
					"output": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"blob", "data_url"},
						"description": "Return base64 bytes (blob) or a data URL",
						"default":     "blob",
					},
					"save_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory to save results into instead of returning their bytes",
					},
					"name": map[string]interface{}{
						"type":        "string",
						"description": "File name for the output; the extension is corrected to match the type",
					},
				}),
			},
		},
		{
			Name:        "image_read",
			Description: "Read a source as text, a binary string, a data URL or raw bytes (base64).",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source": map[string]interface{}{
						"type":        "string",
						"description": "Path, URL or data URL",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"text", "binary_string", "data_url", "array_buffer"},
						"description": "Read mode. Default text",
						"default":     "text",
					},
				},
				"required": []string{"source"},
			},
		},

		// Inspection
		{
			Name:        "image_fit_dimensions",
			Description: "Compute the output size for an image of the given intrinsic size under the resize constraints, without touching any pixels.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withProperties(sizeProperties(), map[string]interface{}{
					"intrinsic_width": map[string]interface{}{
						"type":        "integer",
						"description": "Source width in pixels",
					},
					"intrinsic_height": map[string]interface{}{
						"type":        "integer",
						"description": "Source height in pixels",
					},
				}),
				"required": []string{"intrinsic_width", "intrinsic_height"},
			},
		},
		{
			Name:        "image_data_url_info",
			Description: "Report the MIME type and decoded size of a data URL without decoding it.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"data_url": map[string]interface{}{
						"type":        "string",
						"description": "The data URL",
					},
				},
				"required": []string{"data_url"},
			},
		},
		{
			Name:        "image_info",
			Description: "Load an image and return its dimensions, format, sniffed MIME type and size.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"source": map[string]interface{}{
						"type":        "string",
						"description": "Path, URL or data URL of the image",
					},
				},
				"required": []string{"source"},
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
