package github

// Hook is a repository webhook as returned by the API.
type Hook struct {
	ID     int64      `json:"id"`
	Name   string     `json:"name"`
	Active bool       `json:"active"`
	Events []string   `json:"events"`
	Config HookConfig `json:"config"`
}

// HookConfig is the delivery configuration of a hook. The API never returns the
// secret, only a masked placeholder.
type HookConfig struct {
	URL         string `json:"url"`
	ContentType string `json:"content_type,omitempty"`
	Secret      string `json:"secret,omitempty"`
	InsecureSSL string `json:"insecure_ssl,omitempty"`
}

// HookInput describes a hook to create or update.
type HookInput struct {
	URL    string
	Secret string
	Events []string
	Active bool
}

type hookRequest struct {
	Name   string     `json:"name,omitempty"`
	Active bool       `json:"active"`
	Events []string   `json:"events"`
	Config HookConfig `json:"config"`
}

type branchResponse struct {
	Name   string `json:"name"`
	Commit struct {
		SHA string `json:"sha"`
	} `json:"commit"`
}

type errorResponse struct {
	Message string `json:"message"`
}
