// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/docflip/internal/container"
	"github.com/pdiddy/docflip/pkg/types"
)

// fakeEngine hands out a single fakeSession and records how it was used.
type fakeEngine struct {
	acquireErr error
	session    *fakeSession
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Acquire(context.Context) (Session, error) {
	if f.acquireErr != nil {
		return nil, f.acquireErr
	}
	f.session.acquired = true
	return f.session, nil
}

type fakeSession struct {
	out        []byte
	err        error
	panicMsg   string
	releaseErr error

	acquired bool
	rendered string
	releases int
}

func (f *fakeSession) Render(_ context.Context, markup string) ([]byte, error) {
	f.rendered = markup
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	return f.out, f.err
}

func (f *fakeSession) Release() error {
	f.releases++
	return f.releaseErr
}

func TestUse(t *testing.T) {
	tests := []struct {
		name        string
		session     *fakeSession
		wantErr     string
		wantIs      error
		wantOut     string
		wantRelease int
	}{
		{
			name:        "success",
			session:     &fakeSession{out: []byte("%PDF-1.7 body")},
			wantOut:     "%PDF-1.7 body",
			wantRelease: 1,
		},
		{
			name:        "render failure still releases",
			session:     &fakeSession{err: errors.New("Target closed")},
			wantErr:     "Target closed",
			wantRelease: 1,
		},
		{
			name:        "non pdf output rejected",
			session:     &fakeSession{out: []byte("<html>")},
			wantIs:      ErrInvalidOutput,
			wantRelease: 1,
		},
		{
			name:        "empty output rejected",
			session:     &fakeSession{},
			wantIs:      ErrInvalidOutput,
			wantRelease: 1,
		},
		{
			name:        "release failure after success is tolerated",
			session:     &fakeSession{out: []byte("%PDF-1.4"), releaseErr: errors.New("already gone")},
			wantOut:     "%PDF-1.4",
			wantRelease: 1,
		},
		{
			name:        "release failure joins render failure",
			session:     &fakeSession{err: errors.New("crashed"), releaseErr: errors.New("kill failed")},
			wantErr:     "kill failed",
			wantRelease: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eng := &fakeEngine{session: tt.session}
			out, err := Use(context.Background(), eng, "<html></html>", zerolog.Nop())

			assert.Equal(t, tt.wantRelease, tt.session.releases)
			assert.Equal(t, "<html></html>", tt.session.rendered)

			if tt.wantErr != "" || tt.wantIs != nil {
				require.Error(t, err)
				assert.Nil(t, out)
				if tt.wantErr != "" {
					assert.Contains(t, err.Error(), tt.wantErr)
				}
				if tt.wantIs != nil {
					assert.ErrorIs(t, err, tt.wantIs)
				}
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOut, string(out))
		})
	}
}

func TestUse_AcquireFailure(t *testing.T) {
	sess := &fakeSession{}
	eng := &fakeEngine{acquireErr: errors.New("chrome not found"), session: sess}

	_, err := Use(context.Background(), eng, "<html></html>", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting fake session")
	assert.False(t, sess.acquired)
	assert.Zero(t, sess.releases)
}

func TestUse_ReleasesOnPanic(t *testing.T) {
	sess := &fakeSession{panicMsg: "boom"}
	eng := &fakeEngine{session: sess}

	assert.PanicsWithValue(t, "boom", func() {
		_, _ = Use(context.Background(), eng, "<html></html>", zerolog.Nop())
	})
	assert.Equal(t, 1, sess.releases)
}

// fakeRuntime implements container.Runtime.
type fakeRuntime struct {
	imageErr error
	runFunc  func(ctx context.Context, spec container.RunSpec, stdin io.Reader, stdout io.Writer) error
	runs     []container.RunSpec
	removed  []string
}

func (f *fakeRuntime) Name() string                { return "docker" }
func (f *fakeRuntime) Available() bool             { return true }
func (f *fakeRuntime) ImageExists(string) error    { return f.imageErr }
func (f *fakeRuntime) Remove(name string) error    { f.removed = append(f.removed, name); return nil }
func (f *fakeRuntime) Run(ctx context.Context, spec container.RunSpec, stdin io.Reader, stdout io.Writer) error {
	f.runs = append(f.runs, spec)
	return f.runFunc(ctx, spec, stdin, stdout)
}

func TestNewContainerEngine_RequiresImage(t *testing.T) {
	_, err := NewContainerEngine(&fakeRuntime{imageErr: errors.New("missing")}, "docflip-weasyprint:latest")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "render image not available in docker")
}

func TestContainerEngine_RendersAndRemovesContainer(t *testing.T) {
	rt := &fakeRuntime{runFunc: func(_ context.Context, _ container.RunSpec, stdin io.Reader, stdout io.Writer) error {
		html, _ := io.ReadAll(stdin)
		_, err := stdout.Write([]byte("%PDF-1.7 " + string(html)))
		return err
	}}
	eng, err := NewContainerEngine(rt, "docflip-weasyprint:latest")
	require.NoError(t, err)

	out, err := Use(context.Background(), eng, "<p>hi</p>", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 <p>hi</p>", string(out))

	require.Len(t, rt.runs, 1)
	spec := rt.runs[0]
	assert.Equal(t, "docflip-weasyprint:latest", spec.Image)
	assert.True(t, strings.HasPrefix(spec.Name, "docflip-render-"))
	assert.Contains(t, spec.Args, "none")
	assert.Equal(t, []string{spec.Name}, rt.removed)
}

func TestContainerEngine_FreshSessionPerRequest(t *testing.T) {
	rt := &fakeRuntime{runFunc: func(_ context.Context, _ container.RunSpec, _ io.Reader, stdout io.Writer) error {
		_, err := stdout.Write([]byte("%PDF-1.7"))
		return err
	}}
	eng, err := NewContainerEngine(rt, "img")
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := Use(context.Background(), eng, "<p/>", zerolog.Nop())
		require.NoError(t, err)
	}
	require.Len(t, rt.runs, 2)
	assert.NotEqual(t, rt.runs[0].Name, rt.runs[1].Name)
}

func TestContainerEngine_FailureStillRemoves(t *testing.T) {
	rt := &fakeRuntime{runFunc: func(context.Context, container.RunSpec, io.Reader, io.Writer) error {
		return errors.New("exit status 1: weasyprint: cannot parse")
	}}
	eng, err := NewContainerEngine(rt, "img")
	require.NoError(t, err)

	_, err = Use(context.Background(), eng, "<p/>", zerolog.Nop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot parse")
	assert.Len(t, rt.removed, 1)
}

func TestContainerSession_ReleaseIsIdempotent(t *testing.T) {
	rt := &fakeRuntime{runFunc: func(context.Context, container.RunSpec, io.Reader, io.Writer) error { return nil }}
	eng, err := NewContainerEngine(rt, "img")
	require.NoError(t, err)

	sess, err := eng.Acquire(context.Background())
	require.NoError(t, err)
	_, _ = sess.Render(context.Background(), "<p/>")
	require.NoError(t, sess.Release())
	require.NoError(t, sess.Release())
	assert.Len(t, rt.removed, 1)

	_, err = sess.Render(context.Background(), "<p/>")
	assert.Error(t, err)
}

func TestContainerEngine_AcquireHonoursCancellation(t *testing.T) {
	eng, err := NewContainerEngine(&fakeRuntime{}, "img")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = eng.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewEngine(t *testing.T) {
	eng, err := NewEngine(types.RenderConfig{Backend: types.RenderChrome}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, "chrome", eng.Name())

	_, err = NewEngine(types.RenderConfig{Backend: "wkhtmltopdf"}, zerolog.Nop())
	assert.Error(t, err)
}

func TestInches(t *testing.T) {
	assert.InDelta(t, 8.27, *inches(pageWidthMM), 0.01)
	assert.InDelta(t, 11.69, *inches(pageHeightMM), 0.01)
	assert.InDelta(t, 0.787, *inches(marginMM), 0.001)
}
