package glcontext

// EGL constants needed for bring-up. Values match the upstream EGL/KHR
// headers; kept as a small closed set rather than a generated binding
// since only bring-up needs them.
const (
	eglFalse int32 = 0
	eglTrue  int32 = 1

	eglAlphaSize            int32 = 0x3021
	eglBlueSize             int32 = 0x3022
	eglConfigCaveat         int32 = 0x3027
	eglContextClientVersion int32 = 0x3098
	eglDepthSize            int32 = 0x3025
	eglGreenSize            int32 = 0x3023
	eglExtensions           int32 = 0x3055
	eglNone                 int32 = 0x3038
	eglOpenGLES2Bit         int32 = 0x0004
	eglRedSize              int32 = 0x3024
	eglRenderableType       int32 = 0x3040
	eglSurfaceType          int32 = 0x3033
	eglWindowBit            int32 = 0x0004
	eglOpenGLESAPI          int32 = 0x30A0
)
