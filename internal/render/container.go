// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/pdiddy/docflip/internal/container"
	"github.com/pdiddy/docflip/pkg/types"
)

// containerArgs isolate each run: no network, read-only root, private tmp.
// Fonts must therefore be installed in the image.
var containerArgs = []string{
	"--network", "none",
	"--read-only",
	"--tmpfs", "/tmp",
	"--security-opt", "no-new-privileges",
}

// ContainerEngine renders through an image that reads HTML on stdin and
// writes PDF on stdout (for example WeasyPrint invoked as "weasyprint - -").
// Each session is a separately named, auto-removed container.
type ContainerEngine struct {
	runtime container.Runtime
	image   string
}

// NewContainerEngine verifies that image exists locally before returning.
func NewContainerEngine(rt container.Runtime, image string) (*ContainerEngine, error) {
	if err := rt.ImageExists(image); err != nil {
		return nil, fmt.Errorf("render image not available in %s: %w", rt.Name(), err)
	}
	return &ContainerEngine{runtime: rt, image: image}, nil
}

// Name implements Engine.
func (e *ContainerEngine) Name() string { return string(types.RenderContainer) }

// Acquire implements Engine. The container starts on Render; acquiring only
// reserves its name.
func (e *ContainerEngine) Acquire(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &containerSession{
		runtime: e.runtime,
		spec: container.RunSpec{
			Image: e.image,
			Name:  "docflip-render-" + uuid.NewString(),
			Args:  containerArgs,
		},
	}, nil
}

type containerSession struct {
	runtime container.Runtime
	spec    container.RunSpec

	mu       sync.Mutex
	started  bool
	released bool
}

func (s *containerSession) Render(ctx context.Context, markup string) ([]byte, error) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return nil, fmt.Errorf("session %s already released", s.spec.Name)
	}
	s.started = true
	s.mu.Unlock()

	var out bytes.Buffer
	if err := s.runtime.Run(ctx, s.spec, strings.NewReader(markup), &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

// Release force-removes the container in case the run was interrupted
// before --rm could clean it up.
func (s *containerSession) Release() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return nil
	}
	s.released = true
	if !s.started {
		return nil
	}
	return s.runtime.Remove(s.spec.Name)
}
