package renderer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/ivlev/rig2video/internal/config"
	"github.com/ivlev/rig2video/internal/director"
	"github.com/ivlev/rig2video/internal/rig"
)

// Options are the render settings written into the payload.
type Options struct {
	RenderOutput   string // Blender path, "//" is relative to the .blend/script
	Engine         string
	Width, Height  int
	SimplifyCamera bool
}

func DefaultOptions() Options {
	return Options{
		RenderOutput:   "//render_output",
		Engine:         "BLENDER_EEVEE",
		Width:          1280,
		Height:         720,
		SimplifyCamera: true,
	}
}

// Material colours per class (linear RGBA).
var materialColors = map[rig.MaterialClass][4]float64{
	rig.Skin:            {0.91, 0.72, 0.60, 1.0},
	rig.PrimaryAccent:   {0.10, 0.35, 0.80, 1.0},
	rig.SecondaryAccent: {0.85, 0.30, 0.15, 1.0},
}

// GenerateScript folds a scene into a Blender Python script. Sections are
// written in the scene's emission order: objects, parenting, keyframes,
// camera, audio. The output depends only on the scene and options.
func GenerateScript(scene *director.Scene, opts Options) string {
	var b strings.Builder

	writeHeader(&b, scene, opts)
	writeMaterials(&b)
	writeDeclarations(&b, scene)
	writeParenting(&b, scene)
	writeKeyframes(&b, "Animation", scene.Keyframes)
	writeGround(&b, scene)
	writeCamera(&b, scene, opts)
	writeAudio(&b, scene)
	writeKeyframes(&b, "Beat strip", scene.BeatKeyframes)
	writeRenderSettings(&b, scene, opts)

	return b.String()
}

func writeHeader(b *strings.Builder, scene *director.Scene, opts Options) {
	b.WriteString("import bpy\nimport math\n\n")
	if scene.RunID != "" {
		fmt.Fprintf(b, "# run %s (%s)\n", scene.RunID, scene.Mode)
	}
	b.WriteString(`# --- Setup Scene ---
bpy.ops.object.select_all(action='DESELECT')
bpy.ops.object.select_by_type(type='MESH')
bpy.ops.object.delete()

scene = bpy.context.scene
`)
	fmt.Fprintf(b, "scene.frame_start = %d\n", scene.FrameStart)
	fmt.Fprintf(b, "scene.frame_end = %d\n", scene.FrameEnd)
	fmt.Fprintf(b, "scene.render.fps = %d\n", scene.FrameRate)
	fmt.Fprintf(b, "scene.render.resolution_x = %d\n", opts.Width)
	fmt.Fprintf(b, "scene.render.resolution_y = %d\n\n", opts.Height)
}

func writeMaterials(b *strings.Builder) {
	b.WriteString(`# --- Materials ---
def make_material(name, rgba):
    mat = bpy.data.materials.new(name=name)
    mat.diffuse_color = rgba
    return mat

materials = {
`)
	for _, class := range []rig.MaterialClass{rig.Skin, rig.PrimaryAccent, rig.SecondaryAccent} {
		c := materialColors[class]
		fmt.Fprintf(b, "    %s: make_material(%s, (%.2f, %.2f, %.2f, %.2f)),\n",
			pyString(class.String()), pyString(class.String()), c[0], c[1], c[2], c[3])
	}
	b.WriteString("}\n\n")
}

func writeDeclarations(b *strings.Builder, scene *director.Scene) {
	// Объекты с анимированным масштабом сохраняют scale на объекте,
	// у остальных он запекается в меш, чтобы дети его не наследовали.
	scaleKeyed := map[string]bool{}
	for _, e := range scene.BeatKeyframes {
		if e.Channel == director.ChannelScale {
			scaleKeyed[e.Part] = true
		}
	}
	for _, e := range scene.Keyframes {
		if e.Channel == director.ChannelScale {
			scaleKeyed[e.Part] = true
		}
	}

	b.WriteString(`# --- Objects ---
def make_part(name, location, scale, material, apply_scale):
    bpy.ops.mesh.primitive_cube_add(size=2, location=location)
    obj = bpy.context.active_object
    obj.name = name
    obj.scale = scale
    if apply_scale:
        bpy.ops.object.transform_apply(location=False, rotation=False, scale=True)
    obj.data.materials.append(materials[material])
    return obj

objs = {}
`)
	for _, d := range scene.Declarations {
		apply := "True"
		if scaleKeyed[d.Name] {
			apply = "False"
		}
		fmt.Fprintf(b, "objs[%s] = make_part(%s, %s, %s, %s, %s)\n",
			pyString(d.Name), pyString(d.Name), vec(d.Location), vec(d.Scale), pyString(d.Material.String()), apply)
	}
	b.WriteString("\n")
}

func writeParenting(b *strings.Builder, scene *director.Scene) {
	if len(scene.Parents) == 0 {
		return
	}
	// Родитель назначается напрямую, без matrix_parent_inverse:
	// location ребенка трактуется в системе координат родителя.
	b.WriteString("# --- Parenting ---\n")
	for _, l := range scene.Parents {
		fmt.Fprintf(b, "objs[%s].parent = objs[%s]\n", pyString(l.Child), pyString(l.Parent))
	}
	b.WriteString("\n")
}

func writeKeyframes(b *strings.Builder, title string, events []director.KeyframeEvent) {
	if len(events) == 0 {
		return
	}
	fmt.Fprintf(b, "# --- %s ---\n", title)
	b.WriteString(`def key(name, path, value, frame):
    obj = objs[name]
    setattr(obj, path, value)
    obj.keyframe_insert(data_path=path, frame=frame)

`)
	for _, e := range events {
		fmt.Fprintf(b, "key(%s, '%s', %s, %d)\n", pyString(e.Part), e.Channel, vec(e.Value), e.Frame)
	}
	b.WriteString("\n")
}

func writeGround(b *strings.Builder, scene *director.Scene) {
	if scene.Bounds == nil {
		return
	}
	center := scene.Bounds.Center()
	size := scene.Bounds.Size()
	b.WriteString("# --- Ground ---\n")
	center[2] = scene.Bounds.Min.Z() - groundDrop(scene)
	fmt.Fprintf(b, "bpy.ops.mesh.primitive_plane_add(size=1, location=%s)\n", vec(center))
	b.WriteString("ground = bpy.context.active_object\nground.name = 'Ground'\n")
	fmt.Fprintf(b, "ground.scale = (%s, %s, 1.0)\n\n", num(size.X()+groundMargin), num(size.Y()+groundMargin))
}

const groundMargin = 20.0

// The walker's part origins sit at segment centres; the lowest one is a
// shin, whose box reaches 0.25 further down.
func groundDrop(scene *director.Scene) float64 {
	if scene.Mode == config.ModeWave {
		return 1.0
	}
	return 0.25
}

func writeCamera(b *strings.Builder, scene *director.Scene, opts Options) {
	cam := scene.Camera
	if cam.Name == "" {
		return
	}
	cues := cam.Cues
	if opts.SimplifyCamera {
		cues = SimplifyCues(cues, cueTolerance)
	}

	b.WriteString("# --- Setup Camera ---\n")
	fmt.Fprintf(b, "camera_data = bpy.data.cameras.new(name=%s)\n", pyString(cam.Name))
	fmt.Fprintf(b, "camera_object = bpy.data.objects.new(%s, camera_data)\n", pyString(cam.Name))
	b.WriteString("bpy.context.collection.objects.link(camera_object)\nscene.camera = camera_object\n")
	if scene.Bounds != nil {
		fmt.Fprintf(b, "camera_data.clip_end = %.4f\n", clipEnd(scene.Bounds))
	}

	if cam.Target != "" {
		b.WriteString("track = camera_object.constraints.new(type='TRACK_TO')\n")
		fmt.Fprintf(b, "track.target = objs[%s]\n", pyString(cam.Target))
		b.WriteString("track.track_axis = 'TRACK_NEGATIVE_Z'\ntrack.up_axis = 'UP_Y'\n")
	} else if cam.Rotation != nil {
		fmt.Fprintf(b, "camera_object.rotation_euler = %s\n", vec(*cam.Rotation))
	}

	if len(cues) == 1 {
		fmt.Fprintf(b, "camera_object.location = %s\n\n", vec(cues[0].Location))
		return
	}
	for _, c := range cues {
		fmt.Fprintf(b, "camera_object.location = %s\n", vec(c.Location))
		fmt.Fprintf(b, "camera_object.keyframe_insert(data_path='location', frame=%d)\n", c.Frame)
	}
	// Между оставшимися ключами камера идет по прямой
	b.WriteString(`if camera_object.animation_data and camera_object.animation_data.action:
    for fc in camera_object.animation_data.action.fcurves:
        for kp in fc.keyframe_points:
            kp.interpolation = 'LINEAR'

`)
}

// clipEnd covers the bounds diagonal with headroom for the camera offset.
func clipEnd(bounds *director.Bounds) float64 {
	d := bounds.Size().Len() + 100
	if d < 1000 {
		return 1000
	}
	return d
}

func writeAudio(b *strings.Builder, scene *director.Scene) {
	if scene.Audio == nil {
		return
	}
	a := scene.Audio
	b.WriteString("# --- Audio ---\n")
	b.WriteString("if not scene.sequence_editor:\n    scene.sequence_editor_create()\n")
	fmt.Fprintf(b, "scene.sequence_editor.sequences.new_sound(name='Beat', filepath=bpy.path.abspath(%s), channel=%d, frame_start=%d)\n\n",
		pyString(a.Path), a.Channel, a.StartFrame)
}

func writeRenderSettings(b *strings.Builder, scene *director.Scene, opts Options) {
	b.WriteString("# --- Render Settings ---\n")
	b.WriteString("sun = bpy.data.objects.new('Sun', bpy.data.lights.new(name='Sun', type='SUN'))\n")
	b.WriteString("bpy.context.collection.objects.link(sun)\nsun.rotation_euler = (0.8, 0.2, 0.5)\n")
	fmt.Fprintf(b, "scene.render.engine = %s\n", pyString(opts.Engine))
	b.WriteString(`scene.render.image_settings.file_format = 'FFMPEG'
scene.render.ffmpeg.format = 'MPEG4'
scene.render.ffmpeg.codec = 'H264'
`)
	if scene.Audio != nil {
		b.WriteString("scene.render.ffmpeg.audio_codec = 'AAC'\n")
	}
	fmt.Fprintf(b, "scene.render.filepath = %s\n", pyString(opts.RenderOutput))
}

// vec formats a vector as a Python tuple with 4 decimals.
func vec(v mgl64.Vec3) string {
	return fmt.Sprintf("(%s, %s, %s)", num(v[0]), num(v[1]), num(v[2]))
}

func num(f float64) string {
	s := strconv.FormatFloat(f, 'f', 4, 64)
	if s == "-0.0000" {
		return "0.0000"
	}
	return s
}

// pyString quotes s as a Python string literal. Go's escapes are a subset
// of Python's for the characters that can appear here.
func pyString(s string) string {
	return strconv.Quote(s)
}
