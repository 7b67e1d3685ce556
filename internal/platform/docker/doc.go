// Package docker implements the platform substrate with local Docker
// containers, one container per instance.
//
// It is meant for development and tests: flavors are ignored, the image
// must run an SSH daemon that accepts the key passed in PUBLIC_KEY, and
// instances are reached on their container address. The client honours
// the standard Docker environment variables (DOCKER_HOST etc.).
package docker
