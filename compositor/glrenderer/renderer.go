// Package glrenderer implements compositor.Renderer on top of
// github.com/go-gl/gl: each client surface is drawn as its own textured
// quad positioned by the view's output-root geometry, with an optional
// decorative GLB model (background.go) painted only when the output's
// background is visible.
package glrenderer

import (
	"fmt"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"wlcompositor/compositor"
	"wlcompositor/compositor/glcontext"
)

// PixelBuffer is the concrete compositor.Buffer this renderer knows how
// to attach: a CPU-side RGBA8 image.
type PixelBuffer struct {
	Width, Height int32
	Pixels        []byte
}

type surfaceTexture struct {
	id            uint32
	width, height int32
}

// SurfaceSource is implemented by a View that can report the client
// surface backing its current content. ViewPaint uses it to look up the
// surface's GPU texture; a View that doesn't implement it is skipped
// rather than panicking, consistent with the scheduler's degrade-
// silently error policy.
type SurfaceSource interface {
	BackingSurface() *compositor.Surface
}

// Renderer is the concrete compositor.Renderer. One Renderer is created
// per Output.SetSurface call, on top of that call's fresh Context.
type Renderer struct {
	ctx *glcontext.Context

	quadProgram  uint32
	quadVAO      uint32
	quadVBO      uint32
	quadModelLoc int32
	quadProjLoc  int32
	quadTexLoc   int32

	background       *backgroundModel
	backgroundGLB    string
	outputWidth      int32
	outputHeight     int32
	clearColorIsGray bool

	surfaces map[*compositor.Surface]*surfaceTexture
}

const quadVertexShader = `
#version 410 core
layout (location = 0) in vec2 aPos;
layout (location = 1) in vec2 aTexCoord;

out vec2 TexCoord;

uniform mat4 projection;
uniform mat4 model;

void main() {
    TexCoord = aTexCoord;
    gl_Position = projection * model * vec4(aPos, 0.0, 1.0);
}
` + "\x00"

const quadFragmentShader = `
#version 410 core
out vec4 FragColor;
in vec2 TexCoord;
uniform sampler2D surfaceTexture;

void main() {
    FragColor = texture(surfaceTexture, TexCoord);
}
` + "\x00"

// New builds a Renderer bound to ctx. backgroundGLB, if non-empty, is a
// path to a decorative GLB model loaded lazily the first time
// Background is actually painted, so an output whose background is
// never visible never pays the model-load cost.
func New(ctx *glcontext.Context, backgroundGLB string) (*Renderer, error) {
	r := &Renderer{
		ctx:           ctx,
		backgroundGLB: backgroundGLB,
		surfaces:      make(map[*compositor.Surface]*surfaceTexture),
	}

	vs, err := compileShader(quadVertexShader, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("quad vertex shader: %w", err)
	}
	fs, err := compileShader(quadFragmentShader, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("quad fragment shader: %w", err)
	}
	r.quadProgram = gl.CreateProgram()
	gl.AttachShader(r.quadProgram, vs)
	gl.AttachShader(r.quadProgram, fs)
	gl.LinkProgram(r.quadProgram)
	var status int32
	gl.GetProgramiv(r.quadProgram, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(r.quadProgram, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := make([]byte, logLength)
		gl.GetProgramInfoLog(r.quadProgram, logLength, nil, &infoLog[0])
		return nil, fmt.Errorf("quad program link: %s", string(infoLog))
	}
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	r.quadModelLoc = gl.GetUniformLocation(r.quadProgram, gl.Str("model\x00"))
	r.quadProjLoc = gl.GetUniformLocation(r.quadProgram, gl.Str("projection\x00"))
	r.quadTexLoc = gl.GetUniformLocation(r.quadProgram, gl.Str("surfaceTexture\x00"))

	// Unit quad in [0,1]x[0,1]; ViewPaint scales/translates it per view
	// through the model matrix rather than rebuilding vertex data per
	// draw call.
	quad := []float32{
		0, 0, 0, 0,
		1, 0, 1, 0,
		1, 1, 1, 1,
		0, 0, 0, 0,
		1, 1, 1, 1,
		0, 1, 0, 1,
	}
	gl.GenVertexArrays(1, &r.quadVAO)
	gl.BindVertexArray(r.quadVAO)
	gl.GenBuffers(1, &r.quadVBO)
	gl.BindBuffer(gl.ARRAY_BUFFER, r.quadVBO)
	gl.BufferData(gl.ARRAY_BUFFER, len(quad)*4, gl.Ptr(quad), gl.STATIC_DRAW)
	gl.VertexAttribPointerWithOffset(0, 2, gl.FLOAT, false, 4*4, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 2, gl.FLOAT, false, 4*4, 2*4)
	gl.EnableVertexAttribArray(1)
	gl.BindVertexArray(0)

	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	return r, nil
}

// Bind makes ctx current and sizes the viewport to the output. With
// more than one output sharing a process, the context must be rebound
// every frame rather than assumed current.
func (r *Renderer) Bind(o *compositor.Output) bool {
	if r.ctx != nil && !r.ctx.MakeCurrent() {
		return false
	}
	r.outputWidth, r.outputHeight = o.Resolution.Width, o.Resolution.Height
	if r.outputWidth == 0 || r.outputHeight == 0 {
		return false
	}
	gl.Viewport(0, 0, r.outputWidth, r.outputHeight)
	return true
}

func (r *Renderer) Time(ms uint32) {}

// Background lazily loads the decorative GLB model on first use and
// renders it with an aspect-locked perspective camera.
func (r *Renderer) Background() {
	if r.backgroundGLB == "" {
		r.Clear()
		return
	}
	if r.background == nil {
		bg, err := newBackgroundModel()
		if err != nil {
			r.backgroundGLB = ""
			r.Clear()
			return
		}
		if err := bg.load(r.backgroundGLB); err != nil {
			r.backgroundGLB = ""
			r.Clear()
			return
		}
		r.background = bg
	}
	gl.Enable(gl.DEPTH_TEST)
	gl.ClearColor(0.05, 0.05, 0.08, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
	aspect := float32(r.outputWidth) / float32(r.outputHeight)
	r.background.render(aspect)
	gl.Disable(gl.DEPTH_TEST)
}

// Clear paints the neutral color used when backgrounds are disabled or
// unavailable.
func (r *Renderer) Clear() {
	gl.ClearColor(0, 0, 0, 1)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// ViewPaint draws v's current surface texture as a quad at v's
// output-root geometry, projected orthographically over the output's
// pixel resolution.
func (r *Renderer) ViewPaint(v compositor.View) {
	src, ok := v.(SurfaceSource)
	if !ok {
		return
	}
	surf := src.BackingSurface()
	if surf == nil {
		return
	}
	tex, ok := r.surfaces[surf]
	if !ok {
		return
	}

	geom := v.Geometry()
	projection := mgl32.Ortho2D(0, float32(r.outputWidth), float32(r.outputHeight), 0)
	model := mgl32.Translate3D(float32(geom.X), float32(geom.Y), 0).
		Mul4(mgl32.Scale3D(float32(geom.Width), float32(geom.Height), 1))

	gl.UseProgram(r.quadProgram)
	gl.UniformMatrix4fv(r.quadProjLoc, 1, false, &projection[0])
	gl.UniformMatrix4fv(r.quadModelLoc, 1, false, &model[0])
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, tex.id)
	gl.Uniform1i(r.quadTexLoc, 0)

	gl.BindVertexArray(r.quadVAO)
	gl.DrawArrays(gl.TRIANGLES, 0, 6)
	gl.BindVertexArray(0)
}

// Swap presents the frame through the Context, which issues the EGL
// buffer swap and then the backend's page-flip hook if one is set.
func (r *Renderer) Swap() {
	if r.ctx != nil {
		_ = r.ctx.Swap()
	}
}

// SurfaceAttach uploads buffer's pixels into surf's GPU texture,
// allocating one on first attach.
func (r *Renderer) SurfaceAttach(surf *compositor.Surface, buffer compositor.Buffer) bool {
	pix, ok := buffer.(*PixelBuffer)
	if !ok || pix == nil || len(pix.Pixels) == 0 {
		return false
	}
	tex, exists := r.surfaces[surf]
	if !exists {
		tex = &surfaceTexture{}
		gl.GenTextures(1, &tex.id)
		r.surfaces[surf] = tex
	}
	gl.BindTexture(gl.TEXTURE_2D, tex.id)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	if tex.width != pix.Width || tex.height != pix.Height {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, pix.Width, pix.Height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
		tex.width, tex.height = pix.Width, pix.Height
	}
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, pix.Width, pix.Height, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&pix.Pixels[0]))
	return true
}

// SurfaceDestroy frees surf's GPU texture, if one was ever allocated.
func (r *Renderer) SurfaceDestroy(surf *compositor.Surface) {
	tex, ok := r.surfaces[surf]
	if !ok {
		return
	}
	gl.DeleteTextures(1, &tex.id)
	delete(r.surfaces, surf)
}

// ReadPixels reads back geom's region of the default framebuffer,
// flipping rows since glReadPixels returns bottom-up data but callers
// expect top-down RGBA8.
func (r *Renderer) ReadPixels(geom compositor.Rectangle, out []byte) {
	need := int(geom.Width) * int(geom.Height) * 4
	if len(out) < need {
		return
	}
	flipY := r.outputHeight - geom.Y - geom.Height
	gl.ReadPixels(geom.X, flipY, geom.Width, geom.Height, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&out[0]))
	rowBytes := int(geom.Width) * 4
	tmp := make([]byte, rowBytes)
	rows := int(geom.Height)
	for i := 0; i < rows/2; i++ {
		top := out[i*rowBytes : i*rowBytes+rowBytes]
		bottom := out[(rows-1-i)*rowBytes : (rows-1-i)*rowBytes+rowBytes]
		copy(tmp, top)
		copy(top, bottom)
		copy(bottom, tmp)
	}
}

// Free releases every GPU resource: all surface textures, the quad
// pipeline, and the background model if one was loaded. Each release is
// guarded, so resources that were never allocated are skipped.
func (r *Renderer) Free() {
	for surf, tex := range r.surfaces {
		gl.DeleteTextures(1, &tex.id)
		delete(r.surfaces, surf)
	}
	if r.quadVAO != 0 {
		gl.DeleteVertexArrays(1, &r.quadVAO)
	}
	if r.quadVBO != 0 {
		gl.DeleteBuffers(1, &r.quadVBO)
	}
	if r.quadProgram != 0 {
		gl.DeleteProgram(r.quadProgram)
	}
	if r.background != nil {
		r.background.destroy()
		r.background = nil
	}
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := make([]byte, logLength)
		gl.GetShaderInfoLog(shader, logLength, nil, &infoLog[0])
		return 0, fmt.Errorf("compile: %s", string(infoLog))
	}
	return shader, nil
}
