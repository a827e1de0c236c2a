package models

// Kid represents a child profile. The core never mutates it.
type Kid struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Color        string `json:"color"`
	PhotoDataURL string `json:"photoDataUrl"`
}

// KidPatch holds optional kid field updates; nil fields are left unchanged
type KidPatch struct {
	Name         *string `json:"name,omitempty"`
	Color        *string `json:"color,omitempty"`
	PhotoDataURL *string `json:"photoDataUrl,omitempty"`
}
