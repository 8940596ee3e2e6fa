package api

// Backend endpoint paths
const (
	EndpointGeneratePoem  = "/api/generate_poetry"
	EndpointGenerateImage = "/api/generate_image"
	EndpointGenerateCard  = "/api/generate_card"
	EndpointSavePoem      = "/api/save_poetry"
)

// Poem is a generated poem as returned by the backend
type Poem struct {
	Title   string `json:"title"`
	Content string `json:"content"`
	Comment string `json:"comment"`
}

// SaveRequest is the payload persisted through the save endpoint
type SaveRequest struct {
	Title     string `json:"title"`
	Content   string `json:"content"`
	Comment   string `json:"comment"`
	UserInput string `json:"user_input"`
}

type generatePoemRequest struct {
	Text string `json:"text"`
}

type generateImageRequest struct {
	Poetry string `json:"poetry"`
}

type generateImageResponse struct {
	ImageURL string `json:"image_url"`
}

// The comment is deliberately absent: only title and body go on the card.
type generateCardRequest struct {
	PoetryTitle   string `json:"poetry_title"`
	PoetryContent string `json:"poetry_content"`
	ImagePath     string `json:"image_path"`
}

type generateCardResponse struct {
	Success bool   `json:"success"`
	CardURL string `json:"card_url"`
	URL     string `json:"url"`
	Error   string `json:"error"`
}

type savePoemResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// errorResponse is the body the backend sends with non-2xx statuses
type errorResponse struct {
	Error string `json:"error"`
}
