// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package container

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const renderImage = "docflip-weasyprint:latest"

// fakeExec answers LookPath and RunSilent from tables keyed by "bin args...".
type fakeExec struct {
	onPath  map[string]bool
	succeed map[string]bool
	output  map[string]string
	piped   func(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error
	calls   []string
}

func (f *fakeExec) LookPath(file string) (string, error) {
	if f.onPath[file] {
		return "/usr/bin/" + file, nil
	}
	return "", errors.New("not found: " + file)
}

func (f *fakeExec) RunSilent(name string, args ...string) ([]byte, error) {
	key := strings.Join(append([]string{name}, args...), " ")
	f.calls = append(f.calls, key)
	out := []byte(f.output[key])
	if f.succeed[key] {
		return out, nil
	}
	return out, errors.New("exit status 1")
}

func (f *fakeExec) RunPiped(ctx context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
	if f.piped == nil {
		return nil
	}
	return f.piped(ctx, name, args, stdin, stdout)
}

func TestDetectRuntime(t *testing.T) {
	tests := []struct {
		name    string
		onPath  []string
		working []string
		want    string
	}{
		{name: "docker only", onPath: []string{"docker"}, working: []string{"docker"}, want: "docker"},
		{name: "podman only", onPath: []string{"podman"}, working: []string{"podman"}, want: "podman"},
		{name: "docker preferred", onPath: []string{"docker", "podman"}, working: []string{"docker", "podman"}, want: "docker"},
		{name: "docker daemon down", onPath: []string{"docker", "podman"}, working: []string{"podman"}, want: "podman"},
		{name: "nothing installed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExec{onPath: map[string]bool{}, succeed: map[string]bool{}}
			for _, b := range tt.onPath {
				ex.onPath[b] = true
			}
			for _, b := range tt.working {
				ex.succeed[b+" info"] = true
			}

			rt, err := detectRuntime(ex)
			if tt.want == "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "no container runtime available")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, rt.Name())
		})
	}
}

func TestImageExists(t *testing.T) {
	tests := []struct {
		name  string
		rt    func(executor) *runtime
		check string
		found bool
	}{
		{name: "docker found", rt: newDockerRuntime, check: "docker image inspect", found: true},
		{name: "docker missing", rt: newDockerRuntime, check: "docker image inspect"},
		{name: "podman found", rt: newPodmanRuntime, check: "podman image exists", found: true},
		{name: "podman missing", rt: newPodmanRuntime, check: "podman image exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExec{succeed: map[string]bool{tt.check + " " + renderImage: tt.found}}
			err := tt.rt(ex).ImageExists(renderImage)
			assert.Equal(t, []string{tt.check + " " + renderImage}, ex.calls)
			if tt.found {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), renderImage)
		})
	}
}

func TestRun_PipesMarkupThrough(t *testing.T) {
	var gotName string
	var gotArgs []string
	ex := &fakeExec{piped: func(_ context.Context, name string, args []string, stdin io.Reader, stdout io.Writer) error {
		gotName, gotArgs = name, args
		data, err := io.ReadAll(stdin)
		if err != nil {
			return err
		}
		_, err = stdout.Write(append([]byte("%PDF-"), data...))
		return err
	}}

	spec := RunSpec{Image: renderImage, Name: "docflip-render-1", Args: []string{"--network", "none"}}
	var out bytes.Buffer
	require.NoError(t, newPodmanRuntime(ex).Run(context.Background(), spec, strings.NewReader("<p>doc</p>"), &out))

	assert.Equal(t, "podman", gotName)
	assert.Equal(t, "run --rm -i --name docflip-render-1 --network none "+renderImage, strings.Join(gotArgs, " "))
	assert.Equal(t, "%PDF-<p>doc</p>", out.String())
}

func TestRun_UnnamedOmitsNameFlag(t *testing.T) {
	var gotArgs []string
	ex := &fakeExec{piped: func(_ context.Context, _ string, args []string, _ io.Reader, _ io.Writer) error {
		gotArgs = args
		return nil
	}}
	require.NoError(t, newDockerRuntime(ex).Run(context.Background(), RunSpec{Image: renderImage}, strings.NewReader(""), io.Discard))
	assert.Equal(t, []string{"run", "--rm", "-i", renderImage}, gotArgs)
}

func TestRun_WrapsFailure(t *testing.T) {
	boom := errors.New("exit status 1: weasyprint: cannot parse")
	ex := &fakeExec{piped: func(context.Context, string, []string, io.Reader, io.Writer) error { return boom }}

	err := newDockerRuntime(ex).Run(context.Background(), RunSpec{Image: renderImage}, strings.NewReader(""), io.Discard)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "running docker container "+renderImage)
}

func TestRun_PassesContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ex := &fakeExec{piped: func(ctx context.Context, _ string, _ []string, _ io.Reader, _ io.Writer) error {
		return ctx.Err()
	}}

	err := newDockerRuntime(ex).Run(ctx, RunSpec{Image: renderImage}, strings.NewReader(""), io.Discard)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRemove(t *testing.T) {
	const key = "docker rm -f docflip-render-1"
	tests := []struct {
		name    string
		ok      bool
		output  string
		wantErr bool
	}{
		{name: "removed", ok: true},
		{name: "docker already gone", output: "Error: No such container: docflip-render-1"},
		{name: "podman already gone", output: "Error: no container with name or ID \"docflip-render-1\" found"},
		{name: "other failure", output: "permission denied", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ex := &fakeExec{succeed: map[string]bool{key: tt.ok}, output: map[string]string{key: tt.output}}
			err := newDockerRuntime(ex).Remove("docflip-render-1")
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
			assert.Equal(t, []string{key}, ex.calls)
		})
	}
}
