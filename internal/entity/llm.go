package entity

// Gemini generateContent wire types (only the fields this service reads or writes)

type LLMPart struct {
	Text string `json:"text,omitempty"`
}

type LLMContent struct {
	Role  string    `json:"role,omitempty"`
	Parts []LLMPart `json:"parts"`
}

type LLMSchema struct {
	Type        string                `json:"type"`
	Description string                `json:"description,omitempty"`
	Properties  map[string]*LLMSchema `json:"properties,omitempty"`
	Items       *LLMSchema            `json:"items,omitempty"`
	Required    []string              `json:"required,omitempty"`
}

type LLMGenerationConfig struct {
	ResponseMimeType string     `json:"responseMimeType,omitempty"`
	ResponseSchema   *LLMSchema `json:"responseSchema,omitempty"`
}

type LLMGoogleSearch struct{}

type LLMTool struct {
	GoogleSearch *LLMGoogleSearch `json:"googleSearch,omitempty"`
}

type LLMGenerateContentRequest struct {
	Contents          []LLMContent         `json:"contents"`
	SystemInstruction *LLMContent          `json:"systemInstruction,omitempty"`
	Tools             []LLMTool            `json:"tools,omitempty"`
	GenerationConfig  *LLMGenerationConfig `json:"generationConfig,omitempty"`
}

type LLMWebChunk struct {
	URI   string `json:"uri"`
	Title string `json:"title"`
}

type LLMGroundingChunk struct {
	Web *LLMWebChunk `json:"web,omitempty"`
}

type LLMGroundingMetadata struct {
	GroundingChunks []LLMGroundingChunk `json:"groundingChunks,omitempty"`
}

type LLMCandidate struct {
	Content           *LLMContent           `json:"content,omitempty"`
	FinishReason      string                `json:"finishReason,omitempty"`
	GroundingMetadata *LLMGroundingMetadata `json:"groundingMetadata,omitempty"`
}

type LLMGenerateContentResponse struct {
	Candidates []LLMCandidate `json:"candidates"`
}

// Text concatenates the text parts of the first candidate
func (r *LLMGenerateContentResponse) Text() string {
	if len(r.Candidates) == 0 || r.Candidates[0].Content == nil {
		return ""
	}

	var text string
	for _, part := range r.Candidates[0].Content.Parts {
		text += part.Text
	}
	return text
}

// Sources extracts web grounding citations of the first candidate.
// Chunks without a uri are dropped; missing titles become "Source".
func (r *LLMGenerateContentResponse) Sources() []Source {
	sources := make([]Source, 0)
	if len(r.Candidates) == 0 || r.Candidates[0].GroundingMetadata == nil {
		return sources
	}

	for _, chunk := range r.Candidates[0].GroundingMetadata.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" {
			continue
		}
		title := chunk.Web.Title
		if title == "" {
			title = "Source"
		}
		sources = append(sources, Source{Title: title, URI: chunk.Web.URI})
	}

	return sources
}
