/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"goarrg.com/asset"
)

func TestFuncName(t *testing.T) {
	assert.Equal(t, "shaders_quad_wgsl", funcName("shaders/quad.wgsl"))
	assert.Equal(t, "a_b", funcName("a-.b"))
}

func TestGenerator(t *testing.T) {
	var g generator
	require.NoError(t, g.UnmarshalText([]byte("go")))
	assert.Equal(t, generatorGO, g)
	text, err := g.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "go", string(text))
	assert.Error(t, g.UnmarshalText([]byte("yaml")))
}

func TestCompileSPIRV(t *testing.T) {
	dir := t.TempDir()
	spv := make([]byte, 20)
	binary.LittleEndian.PutUint32(spv, 0x07230203)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "quad.spv"), spv, 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "junk.spv"), []byte("junk"), 0o600))
	fs := asset.DirFS(dir)

	s, err := compile(fs, "quad.spv")
	require.NoError(t, err)
	assert.Equal(t, spv, s.SPIRV)
	assert.Equal(t, "quad.spv", s.Name)

	_, err = compile(fs, "junk.spv")
	assert.Error(t, err)
}

func TestGenJson(t *testing.T) {
	dir := t.TempDir()
	genJson(dir, "quad", &shader{Name: "quad.spv", SPIRV: []byte{1, 2, 3}})

	data, err := os.ReadFile(filepath.Join(dir, "quad.json"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"Name": "quad.spv", "SPIRV": "AQID"}`, string(data))
}
