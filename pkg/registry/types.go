// pkg/registry/types.go
package registry

// Manifest is the subset of a Docker v2 image manifest the puller needs
type Manifest struct {
	SchemaVersion int     `json:"schemaVersion"`
	MediaType     string  `json:"mediaType"`
	Layers        []Layer `json:"layers"`
}

// Layer describes one filesystem layer blob
type Layer struct {
	MediaType string `json:"mediaType"`
	Size      int64  `json:"size"`
	Digest    string `json:"digest"`
}

// authResponse is the token grant returned by the registry auth endpoint
type authResponse struct {
	Token string `json:"token"`
}
