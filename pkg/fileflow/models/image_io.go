package models

// ShareLinkInput is the body of POST /share-link
type ShareLinkInput struct {
	ImageUrl string `json:"imageUrl" binding:"required"`
}

// ShareResponse is returned after an upload or a link share
type ShareResponse struct {
	PublicUrl string `json:"publicUrl"`
	Code      string `json:"code"`
	Filename  string `json:"filename"`
}

type BucketResponse struct {
	Success bool `json:"success"`
}

type CodeParams struct {
	Code string `path:"code" validate:"required"`
}

// VerifyInput carries the code from the path and the code the viewer typed.
type VerifyInput struct {
	Code      string `path:"code" validate:"required"`
	Candidate string `json:"code"`
}

type SweepResult struct {
	Removed int `json:"removed"`
}
