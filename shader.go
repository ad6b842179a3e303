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

package nova

import (
	"encoding/binary"
	"io"
	"path"

	"github.com/gogpu/naga"
	"goarrg.com/asset"
	"goarrg.com/debug"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/util"
)

const spirvMagic uint32 = 0x07230203

type ShaderModule struct {
	ctx *Context
	raw util.Droppable[hal.ShaderModule]
}

// ValidateSPIRV checks the header of a little endian SPIR-V module.
func ValidateSPIRV(code []byte) error {
	switch {
	case len(code) < 20:
		return ErrorInvalidShader{Reason: "module shorter than the SPIR-V header"}
	case len(code)%4 != 0:
		return ErrorInvalidShader{Reason: "size is not a multiple of 4"}
	case binary.LittleEndian.Uint32(code) != spirvMagic:
		return ErrorInvalidShader{Reason: "bad magic number"}
	}
	return nil
}

// NewShaderModule creates a module from little endian SPIR-V.
func NewShaderModule(ctx *Context, spirv []byte) (*ShaderModule, error) {
	if err := ValidateSPIRV(spirv); err != nil {
		return nil, err
	}
	raw, err := ctx.device.CreateShaderModule(spirv)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to create shader module")
	}
	ctx.retain()
	m := &ShaderModule{ctx: ctx}
	m.raw.Set(raw)
	return m, nil
}

// CompileWGSL compiles WGSL source into little endian SPIR-V.
func CompileWGSL(src string) ([]byte, error) {
	spirv, err := naga.Compile(src)
	if err != nil {
		return nil, debug.ErrorWrapf(ErrorInvalidShader{Reason: err.Error()}, "Failed to compile WGSL")
	}
	if err := ValidateSPIRV(spirv); err != nil {
		return nil, debug.ErrorWrapf(err, "WGSL compiler produced invalid SPIR-V")
	}
	return spirv, nil
}

// LoadShaderModule reads name from fs, files ending in .wgsl are compiled, anything else must be SPIR-V.
func LoadShaderModule(ctx *Context, fs *asset.FileSystem, name string) (*ShaderModule, error) {
	instance.logger.VPrintf("Loading shader: %q", name)
	f, err := fs.Open(name)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to open shader %q", name)
	}
	defer f.Close()

	code, err := io.ReadAll(f)
	if err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to read shader %q", name)
	}
	if path.Ext(name) == ".wgsl" {
		if code, err = CompileWGSL(string(code)); err != nil {
			return nil, debug.ErrorWrapf(err, "Failed to compile shader %q", name)
		}
	}
	return NewShaderModule(ctx, code)
}

func (m *ShaderModule) Destroy() {
	raw, ok := m.raw.Take()
	if !ok {
		return
	}
	raw.Destroy()
	m.ctx.release()
}
