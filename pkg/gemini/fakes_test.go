package gemini

import (
	"context"

	"google.golang.org/genai"
)

type fakeContentModel struct {
	text   string
	err    error
	calls  int
	model  string
	prompt string
	config *genai.GenerateContentConfig
}

func (f *fakeContentModel) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.model = model
	f.config = config
	if len(contents) > 0 && len(contents[0].Parts) > 0 {
		f.prompt = contents[0].Parts[0].Text
	}
	if f.err != nil {
		return nil, f.err
	}
	return textResponse(f.text), nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{{Text: text}}}},
		},
	}
}

type fakeImageModel struct {
	images [][]byte
	err    error
	model  string
	prompt string
	config *genai.GenerateImagesConfig
}

func (f *fakeImageModel) GenerateImages(ctx context.Context, model, prompt string, config *genai.GenerateImagesConfig) (*genai.GenerateImagesResponse, error) {
	f.model = model
	f.prompt = prompt
	f.config = config
	if f.err != nil {
		return nil, f.err
	}
	resp := &genai.GenerateImagesResponse{}
	for _, b := range f.images {
		resp.GeneratedImages = append(resp.GeneratedImages, &genai.GeneratedImage{
			Image: &genai.Image{ImageBytes: b, MIMEType: SceneMimeType},
		})
	}
	return resp, nil
}

type fakeChat struct {
	replies []string
	errs    []error
	sent    []string
}

func (f *fakeChat) SendMessage(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	i := len(f.sent)
	for _, p := range parts {
		f.sent = append(f.sent, p.Text)
	}
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	reply := ""
	if i < len(f.replies) {
		reply = f.replies[i]
	}
	return textResponse(reply), nil
}
