// pkg/registry/constants.go
package registry

import "time"

const (
	// DefaultRegistry hosts the official pypa Manylinux images
	DefaultRegistry = "https://quay.io"

	// DefaultNamespace is the repository namespace the images live under
	DefaultNamespace = "pypa"

	// DefaultTimeout bounds a single HTTP request
	DefaultTimeout = 5 * time.Minute

	// manifestMediaType is the Docker v2 manifest format quay serves
	manifestMediaType = "application/vnd.docker.distribution.manifest.v2+json"
)
