package glrenderer

import (
	"fmt"
	"log"
	"math"
	"sort"
	"time"
	"unsafe"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// mesh is one glTF primitive's GPU buffers.
type mesh struct {
	vao, vbo, ebo uint32
	indexCount    int32
	hasIndices    bool
	vertexCount   int32
	skinIndex     int
}

type skin struct {
	joints              []int
	inverseBindMatrices []mgl32.Mat4
}

type animChannel struct {
	nodeIndex  int
	path       string
	timestamps []float32
	values     []float32
}

type animation struct {
	name     string
	channels []animChannel
	duration float32
}

type nodeTransform struct {
	translation mgl32.Vec3
	rotation    mgl32.Quat
	scale       mgl32.Vec3
}

// backgroundModel renders an optional decorative GLB scene when an
// output's background is visible. The model is textured with a static
// ambient gradient; client surfaces are painted separately as textured
// quads (see renderer.go), never onto this model's faces.
type backgroundModel struct {
	meshes        []mesh
	shaderProgram uint32
	textureID     uint32
	textureWidth  int32
	textureHeight int32

	modelLoc      int32
	viewLoc       int32
	projectionLoc int32
	textureLoc    int32

	rotation float32

	animations     map[string]*animation
	nodeTransforms []nodeTransform
	baseTransforms []nodeTransform
	currentAnim    *animation
	animStartTime  time.Time
	animLoop       bool
	doc            *gltf.Document

	skins        []skin
	nodeParents  []int
	boneMatrices []mgl32.Mat4
}

const backgroundVertexShader = `
#version 410 core
layout (location = 0) in vec3 aPos;
layout (location = 1) in vec3 aNormal;
layout (location = 2) in vec2 aTexCoord;
layout (location = 3) in vec4 aJoints;
layout (location = 4) in vec4 aWeights;

out vec2 TexCoord;
out vec3 Normal;
out vec3 FragPos;

uniform mat4 model;
uniform mat4 view;
uniform mat4 projection;
uniform mat4 boneMatrices[128];

void main() {
    mat4 skinMatrix = mat4(0.0);
    float totalWeight = aWeights.x + aWeights.y + aWeights.z + aWeights.w;

    if (totalWeight > 0.0) {
        skinMatrix += boneMatrices[int(aJoints.x)] * aWeights.x;
        skinMatrix += boneMatrices[int(aJoints.y)] * aWeights.y;
        skinMatrix += boneMatrices[int(aJoints.z)] * aWeights.z;
        skinMatrix += boneMatrices[int(aJoints.w)] * aWeights.w;
    } else {
        skinMatrix = mat4(1.0);
    }

    vec4 skinnedPos = skinMatrix * vec4(aPos, 1.0);
    vec3 skinnedNormal = mat3(skinMatrix) * aNormal;

    FragPos = vec3(model * skinnedPos);
    Normal = mat3(transpose(inverse(model))) * skinnedNormal;
    TexCoord = aTexCoord;
    gl_Position = projection * view * model * skinnedPos;
}
` + "\x00"

const backgroundFragmentShader = `
#version 410 core
out vec4 FragColor;

in vec2 TexCoord;
in vec3 Normal;
in vec3 FragPos;

uniform sampler2D ambientTexture;

void main() {
    vec3 lightDir = normalize(vec3(1.0, 1.0, 1.0));
    vec3 norm = normalize(Normal);
    float diff = max(dot(norm, lightDir), 0.0);
    float ambient = 0.3;
    float lighting = ambient + diff * 0.7;

    vec4 texColor = texture(ambientTexture, TexCoord);
    FragColor = vec4(texColor.rgb * lighting, texColor.a);
}
` + "\x00"

// newBackgroundModel compiles the background shader program and
// allocates its texture unit. Returns an error rather than panicking so
// a renderer with a broken background can still fall back to Clear().
func newBackgroundModel() (*backgroundModel, error) {
	m := &backgroundModel{animations: make(map[string]*animation)}

	vs, err := compileShader(backgroundVertexShader, gl.VERTEX_SHADER)
	if err != nil {
		return nil, fmt.Errorf("background vertex shader: %w", err)
	}
	fs, err := compileShader(backgroundFragmentShader, gl.FRAGMENT_SHADER)
	if err != nil {
		return nil, fmt.Errorf("background fragment shader: %w", err)
	}

	m.shaderProgram = gl.CreateProgram()
	gl.AttachShader(m.shaderProgram, vs)
	gl.AttachShader(m.shaderProgram, fs)
	gl.LinkProgram(m.shaderProgram)

	var status int32
	gl.GetProgramiv(m.shaderProgram, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(m.shaderProgram, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := make([]byte, logLength)
		gl.GetProgramInfoLog(m.shaderProgram, logLength, nil, &infoLog[0])
		return nil, fmt.Errorf("background program link: %s", string(infoLog))
	}
	gl.DeleteShader(vs)
	gl.DeleteShader(fs)

	m.modelLoc = gl.GetUniformLocation(m.shaderProgram, gl.Str("model\x00"))
	m.viewLoc = gl.GetUniformLocation(m.shaderProgram, gl.Str("view\x00"))
	m.projectionLoc = gl.GetUniformLocation(m.shaderProgram, gl.Str("projection\x00"))
	m.textureLoc = gl.GetUniformLocation(m.shaderProgram, gl.Str("ambientTexture\x00"))

	gl.GenTextures(1, &m.textureID)
	gl.BindTexture(gl.TEXTURE_2D, m.textureID)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	m.fillAmbientGradient(256, 256)

	return m, nil
}

// fillAmbientGradient generates a quiet vertical gradient as the
// background's idle texture. No live desktop buffer feeds this model;
// client surfaces are painted as their own quads.
func (m *backgroundModel) fillAmbientGradient(width, height int32) {
	buf := make([]byte, width*height*4)
	for y := int32(0); y < height; y++ {
		shade := byte(32 + (y*64)/height)
		for x := int32(0); x < width; x++ {
			i := (y*width + x) * 4
			buf[i], buf[i+1], buf[i+2], buf[i+3] = shade, shade, shade+8, 255
		}
	}
	m.updateTexture(buf, width, height)
}

func (m *backgroundModel) updateTexture(buffer []byte, width, height int32) {
	if len(buffer) == 0 {
		return
	}
	gl.BindTexture(gl.TEXTURE_2D, m.textureID)
	if m.textureWidth != width || m.textureHeight != height {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA, width, height, 0, gl.RGBA, gl.UNSIGNED_BYTE, nil)
		m.textureWidth, m.textureHeight = width, height
	}
	gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, width, height, gl.RGBA, gl.UNSIGNED_BYTE, unsafe.Pointer(&buffer[0]))
}

// load reads a GLB file and uploads its meshes, skins, and animations.
func (m *backgroundModel) load(filename string) error {
	doc, err := gltf.Open(filename)
	if err != nil {
		return fmt.Errorf("open glb: %w", err)
	}
	m.doc = doc

	m.nodeParents = make([]int, len(doc.Nodes))
	for i := range m.nodeParents {
		m.nodeParents[i] = -1
	}
	for parentIdx, node := range doc.Nodes {
		for _, childIdx := range node.Children {
			m.nodeParents[childIdx] = parentIdx
		}
	}

	m.nodeTransforms = make([]nodeTransform, len(doc.Nodes))
	m.baseTransforms = make([]nodeTransform, len(doc.Nodes))
	for i, node := range doc.Nodes {
		m.nodeTransforms[i] = nodeTransform{
			translation: mgl32.Vec3{0, 0, 0},
			rotation:    mgl32.QuatIdent(),
			scale:       mgl32.Vec3{1, 1, 1},
		}
		if node.Translation != [3]float64{0, 0, 0} {
			m.nodeTransforms[i].translation = mgl32.Vec3{
				float32(node.Translation[0]), float32(node.Translation[1]), float32(node.Translation[2]),
			}
		}
		if node.Rotation != [4]float64{0, 0, 0, 1} {
			m.nodeTransforms[i].rotation = mgl32.Quat{
				W: float32(node.Rotation[3]),
				V: mgl32.Vec3{float32(node.Rotation[0]), float32(node.Rotation[1]), float32(node.Rotation[2])},
			}
		}
		if node.Scale != [3]float64{1, 1, 1} && node.Scale != [3]float64{0, 0, 0} {
			m.nodeTransforms[i].scale = mgl32.Vec3{
				float32(node.Scale[0]), float32(node.Scale[1]), float32(node.Scale[2]),
			}
		}
		m.baseTransforms[i] = m.nodeTransforms[i]
	}

	for _, sk := range doc.Skins {
		s := skin{joints: make([]int, len(sk.Joints))}
		for i, jointIdx := range sk.Joints {
			s.joints[i] = int(jointIdx)
		}
		if sk.InverseBindMatrices != nil {
			matrices, err := m.readAccessorFloats(doc, int(*sk.InverseBindMatrices))
			if err == nil {
				s.inverseBindMatrices = make([]mgl32.Mat4, len(s.joints))
				for i := 0; i < len(s.joints) && i*16+16 <= len(matrices); i++ {
					for j := 0; j < 16; j++ {
						s.inverseBindMatrices[i][j] = matrices[i*16+j]
					}
				}
			}
		} else {
			s.inverseBindMatrices = make([]mgl32.Mat4, len(s.joints))
			for i := range s.inverseBindMatrices {
				s.inverseBindMatrices[i] = mgl32.Ident4()
			}
		}
		m.skins = append(m.skins, s)
	}

	if len(m.skins) > 0 {
		maxJoints := 0
		for _, sk := range m.skins {
			if len(sk.joints) > maxJoints {
				maxJoints = len(sk.joints)
			}
		}
		m.boneMatrices = make([]mgl32.Mat4, maxJoints)
		for i := range m.boneMatrices {
			m.boneMatrices[i] = mgl32.Ident4()
		}
	}

	for _, node := range doc.Nodes {
		if node.Mesh == nil {
			continue
		}
		glMesh := doc.Meshes[*node.Mesh]
		for _, prim := range glMesh.Primitives {
			gm, err := m.loadPrimitive(doc, prim)
			if err != nil {
				return fmt.Errorf("load primitive: %w", err)
			}
			if node.Skin != nil {
				gm.skinIndex = int(*node.Skin)
			} else {
				gm.skinIndex = -1
			}
			m.meshes = append(m.meshes, gm)
		}
	}
	if len(m.meshes) == 0 {
		return fmt.Errorf("no meshes found in GLB file")
	}
	log.Printf("background model: loaded %d skins, %d nodes", len(m.skins), len(doc.Nodes))

	for _, anim := range doc.Animations {
		name := anim.Name
		if name == "" {
			name = fmt.Sprintf("animation_%d", len(m.animations))
		}
		a := &animation{name: name}
		for _, channel := range anim.Channels {
			if channel.Target.Node == nil {
				continue
			}
			sampler := anim.Samplers[channel.Sampler]
			timestamps, err := m.readAccessorFloats(doc, int(sampler.Input))
			if err != nil {
				log.Printf("background model: skip channel, timestamps: %v", err)
				continue
			}
			values, err := m.readAccessorFloats(doc, int(sampler.Output))
			if err != nil {
				log.Printf("background model: skip channel, values: %v", err)
				continue
			}
			if len(timestamps) > 0 && timestamps[len(timestamps)-1] > a.duration {
				a.duration = timestamps[len(timestamps)-1]
			}
			a.channels = append(a.channels, animChannel{
				nodeIndex:  int(*channel.Target.Node),
				path:       string(channel.Target.Path),
				timestamps: timestamps,
				values:     values,
			})
		}
		if len(a.channels) > 0 {
			m.animations[name] = a
		}
	}

	// An idle background should keep moving on its own: start the first
	// animation looping, so the scheduler's background-visible re-arm
	// actually has something to tick.
	for name := range m.animations {
		if err := m.playAnimation(name, true); err == nil {
			break
		}
	}
	return nil
}

func (m *backgroundModel) loadPrimitive(doc *gltf.Document, prim *gltf.Primitive) (mesh, error) {
	var gm mesh

	posIdx, ok := prim.Attributes[gltf.POSITION]
	if !ok {
		return gm, fmt.Errorf("no POSITION attribute")
	}
	positions, err := modeler.ReadPosition(doc, doc.Accessors[posIdx], nil)
	if err != nil {
		return gm, fmt.Errorf("read positions: %w", err)
	}

	var normals [][3]float32
	if idx, ok := prim.Attributes[gltf.NORMAL]; ok {
		normals, _ = modeler.ReadNormal(doc, doc.Accessors[idx], nil)
	}
	var texCoords [][2]float32
	if idx, ok := prim.Attributes[gltf.TEXCOORD_0]; ok {
		texCoords, _ = modeler.ReadTextureCoord(doc, doc.Accessors[idx], nil)
	}
	var joints [][4]uint16
	if idx, ok := prim.Attributes[gltf.JOINTS_0]; ok {
		joints, _ = modeler.ReadJoints(doc, doc.Accessors[idx], nil)
	}
	var weights [][4]float32
	if idx, ok := prim.Attributes[gltf.WEIGHTS_0]; ok {
		weights, _ = modeler.ReadWeights(doc, doc.Accessors[idx], nil)
	}

	vertexData := make([]float32, 0, len(positions)*16)
	for i, pos := range positions {
		vertexData = append(vertexData, pos[0], pos[1], pos[2])
		if normals != nil && i < len(normals) {
			vertexData = append(vertexData, normals[i][0], normals[i][1], normals[i][2])
		} else {
			vertexData = append(vertexData, 0, 1, 0)
		}
		if texCoords != nil && i < len(texCoords) {
			vertexData = append(vertexData, texCoords[i][0], texCoords[i][1])
		} else {
			vertexData = append(vertexData, (pos[0]+1)/2, (pos[1]+1)/2)
		}
		if joints != nil && i < len(joints) {
			vertexData = append(vertexData,
				float32(joints[i][0]), float32(joints[i][1]), float32(joints[i][2]), float32(joints[i][3]))
		} else {
			vertexData = append(vertexData, 0, 0, 0, 0)
		}
		if weights != nil && i < len(weights) {
			vertexData = append(vertexData, weights[i][0], weights[i][1], weights[i][2], weights[i][3])
		} else {
			vertexData = append(vertexData, 0, 0, 0, 0)
		}
	}

	gl.GenVertexArrays(1, &gm.vao)
	gl.BindVertexArray(gm.vao)

	gl.GenBuffers(1, &gm.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, gm.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertexData)*4, gl.Ptr(vertexData), gl.STATIC_DRAW)

	stride := int32(16 * 4)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, stride, 0)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, stride, 3*4)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(2, 2, gl.FLOAT, false, stride, 6*4)
	gl.EnableVertexAttribArray(2)
	gl.VertexAttribPointerWithOffset(3, 4, gl.FLOAT, false, stride, 8*4)
	gl.EnableVertexAttribArray(3)
	gl.VertexAttribPointerWithOffset(4, 4, gl.FLOAT, false, stride, 12*4)
	gl.EnableVertexAttribArray(4)

	if prim.Indices != nil {
		indices, err := modeler.ReadIndices(doc, doc.Accessors[*prim.Indices], nil)
		if err == nil && len(indices) > 0 {
			gl.GenBuffers(1, &gm.ebo)
			gl.BindBuffer(gl.ELEMENT_ARRAY_BUFFER, gm.ebo)
			gl.BufferData(gl.ELEMENT_ARRAY_BUFFER, len(indices)*4, gl.Ptr(indices), gl.STATIC_DRAW)
			gm.hasIndices = true
			gm.indexCount = int32(len(indices))
		}
	}
	if !gm.hasIndices {
		gm.vertexCount = int32(len(positions))
	}
	gl.BindVertexArray(0)
	return gm, nil
}

// playAnimation starts the named animation, if present.
func (m *backgroundModel) playAnimation(name string, loop bool) error {
	anim, ok := m.animations[name]
	if !ok {
		return fmt.Errorf("animation %q not found", name)
	}
	m.currentAnim = anim
	m.animStartTime = time.Now()
	m.animLoop = loop
	return nil
}

func (m *backgroundModel) updateAnimation() {
	if m.currentAnim == nil {
		return
	}
	elapsed := float32(time.Since(m.animStartTime).Seconds())
	if m.animLoop && m.currentAnim.duration > 0 {
		elapsed = float32(math.Mod(float64(elapsed), float64(m.currentAnim.duration)))
	} else if elapsed > m.currentAnim.duration {
		m.currentAnim = nil
		return
	}

	for i := range m.nodeTransforms {
		m.nodeTransforms[i] = m.baseTransforms[i]
	}
	for _, channel := range m.currentAnim.channels {
		if channel.nodeIndex < 0 || channel.nodeIndex >= len(m.nodeTransforms) {
			continue
		}
		value := m.interpolateKeyframes(channel, elapsed)
		switch channel.path {
		case "translation":
			if len(value) >= 3 {
				m.nodeTransforms[channel.nodeIndex].translation = mgl32.Vec3{value[0], value[1], value[2]}
			}
		case "rotation":
			if len(value) >= 4 {
				m.nodeTransforms[channel.nodeIndex].rotation = mgl32.Quat{W: value[3], V: mgl32.Vec3{value[0], value[1], value[2]}}
			}
		case "scale":
			if len(value) >= 3 {
				m.nodeTransforms[channel.nodeIndex].scale = mgl32.Vec3{value[0], value[1], value[2]}
			}
		}
	}
}

func (m *backgroundModel) interpolateKeyframes(channel animChannel, t float32) []float32 {
	if len(channel.timestamps) == 0 {
		return nil
	}
	components := 3
	if channel.path == "rotation" {
		components = 4
	}
	count := len(channel.timestamps)
	idx := sort.Search(count, func(i int) bool { return channel.timestamps[i] > t })

	if idx == 0 {
		if components <= len(channel.values) {
			return channel.values[0:components]
		}
		return nil
	}
	if idx == count {
		start := (count - 1) * components
		if start+components <= len(channel.values) {
			return channel.values[start : start+components]
		}
		return nil
	}
	keyIdx := idx - 1
	t0, t1 := channel.timestamps[keyIdx], channel.timestamps[keyIdx+1]
	factor := (t - t0) / (t1 - t0)
	if factor < 0 {
		factor = 0
	}
	if factor > 1 {
		factor = 1
	}
	start0, start1 := keyIdx*components, (keyIdx+1)*components
	if start1+components > len(channel.values) {
		return channel.values[start0 : start0+components]
	}

	result := make([]float32, components)
	if channel.path == "rotation" {
		q0 := mgl32.Quat{W: channel.values[start0+3], V: mgl32.Vec3{channel.values[start0], channel.values[start0+1], channel.values[start0+2]}}
		q1 := mgl32.Quat{W: channel.values[start1+3], V: mgl32.Vec3{channel.values[start1], channel.values[start1+1], channel.values[start1+2]}}
		qr := mgl32.QuatSlerp(q0, q1, factor)
		result[0], result[1], result[2], result[3] = qr.V[0], qr.V[1], qr.V[2], qr.W
	} else {
		for i := 0; i < components; i++ {
			v0, v1 := channel.values[start0+i], channel.values[start1+i]
			result[i] = v0 + (v1-v0)*factor
		}
	}
	return result
}

func (m *backgroundModel) nodeTransformMatrix(nodeIndex int) mgl32.Mat4 {
	if nodeIndex < 0 || nodeIndex >= len(m.nodeTransforms) {
		return mgl32.Ident4()
	}
	t := m.nodeTransforms[nodeIndex]
	translation := mgl32.Translate3D(t.translation[0], t.translation[1], t.translation[2])
	rotation := t.rotation.Mat4()
	scale := mgl32.Scale3D(t.scale[0], t.scale[1], t.scale[2])
	return translation.Mul4(rotation).Mul4(scale)
}

func (m *backgroundModel) readAccessorFloats(doc *gltf.Document, accessorIndex int) ([]float32, error) {
	if accessorIndex < 0 || accessorIndex >= len(doc.Accessors) {
		return nil, fmt.Errorf("invalid accessor index: %d", accessorIndex)
	}
	accessor := doc.Accessors[accessorIndex]
	bufferView := doc.BufferViews[*accessor.BufferView]
	buffer := doc.Buffers[bufferView.Buffer]
	data := buffer.Data[bufferView.ByteOffset+accessor.ByteOffset:]

	var elemCount int
	switch accessor.Type {
	case gltf.AccessorScalar:
		elemCount = 1
	case gltf.AccessorVec2:
		elemCount = 2
	case gltf.AccessorVec3:
		elemCount = 3
	case gltf.AccessorVec4:
		elemCount = 4
	case gltf.AccessorMat4:
		elemCount = 16
	default:
		elemCount = 1
	}

	total := int(accessor.Count) * elemCount
	result := make([]float32, total)
	for i := 0; i < total; i++ {
		offset := i * 4
		if offset+4 <= len(data) {
			bits := uint32(data[offset]) | uint32(data[offset+1])<<8 | uint32(data[offset+2])<<16 | uint32(data[offset+3])<<24
			result[i] = math.Float32frombits(bits)
		}
	}
	return result, nil
}

func (m *backgroundModel) globalNodeTransform(nodeIndex int) mgl32.Mat4 {
	if nodeIndex < 0 || nodeIndex >= len(m.nodeTransforms) {
		return mgl32.Ident4()
	}
	local := m.nodeTransformMatrix(nodeIndex)
	parentIdx := m.nodeParents[nodeIndex]
	if parentIdx >= 0 {
		return m.globalNodeTransform(parentIdx).Mul4(local)
	}
	return local
}

func (m *backgroundModel) computeBoneMatrices(skinIndex int) {
	if skinIndex < 0 || skinIndex >= len(m.skins) {
		return
	}
	sk := m.skins[skinIndex]
	if len(m.boneMatrices) < len(sk.joints) {
		m.boneMatrices = make([]mgl32.Mat4, len(sk.joints))
	}
	for i, jointIndex := range sk.joints {
		global := m.globalNodeTransform(jointIndex)
		m.boneMatrices[i] = global.Mul4(sk.inverseBindMatrices[i])
	}
}

// render draws the background model at the given aspect ratio, ticking
// its animation state first.
func (m *backgroundModel) render(aspect float32) {
	m.updateAnimation()
	gl.UseProgram(m.shaderProgram)

	projection := mgl32.Perspective(mgl32.DegToRad(45.0), aspect, 0.1, 100.0)
	view := mgl32.LookAtV(mgl32.Vec3{0, 0, 3}, mgl32.Vec3{0, 0, 0}, mgl32.Vec3{0, 1, 0})
	gl.UniformMatrix4fv(m.projectionLoc, 1, false, &projection[0])
	gl.UniformMatrix4fv(m.viewLoc, 1, false, &view[0])

	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, m.textureID)
	gl.Uniform1i(m.textureLoc, 0)

	identity := mgl32.Ident4()
	for _, gm := range m.meshes {
		baseModel := mgl32.HomogRotate3DY(m.rotation)

		if gm.skinIndex >= 0 && gm.skinIndex < len(m.skins) {
			m.computeBoneMatrices(gm.skinIndex)
			numJoints := len(m.skins[gm.skinIndex].joints)
			if numJoints > 128 {
				numJoints = 128
			}
			for i := 0; i < numJoints; i++ {
				loc := gl.GetUniformLocation(m.shaderProgram, gl.Str(fmt.Sprintf("boneMatrices[%d]\x00", i)))
				gl.UniformMatrix4fv(loc, 1, false, &m.boneMatrices[i][0])
			}
		} else {
			for i := 0; i < 128; i++ {
				loc := gl.GetUniformLocation(m.shaderProgram, gl.Str(fmt.Sprintf("boneMatrices[%d]\x00", i)))
				gl.UniformMatrix4fv(loc, 1, false, &identity[0])
			}
		}

		gl.UniformMatrix4fv(m.modelLoc, 1, false, &baseModel[0])
		gl.BindVertexArray(gm.vao)
		if gm.hasIndices {
			gl.DrawElements(gl.TRIANGLES, gm.indexCount, gl.UNSIGNED_INT, nil)
		} else {
			gl.DrawArrays(gl.TRIANGLES, 0, gm.vertexCount)
		}
	}
	gl.BindVertexArray(0)
	m.rotation += 0.002
}

func (m *backgroundModel) destroy() {
	for _, gm := range m.meshes {
		gl.DeleteVertexArrays(1, &gm.vao)
		gl.DeleteBuffers(1, &gm.vbo)
		if gm.hasIndices {
			gl.DeleteBuffers(1, &gm.ebo)
		}
	}
	gl.DeleteTextures(1, &m.textureID)
	gl.DeleteProgram(m.shaderProgram)
}
