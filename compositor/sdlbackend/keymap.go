package sdlbackend

import "github.com/veandco/go-sdl2/sdl"

// scancodeToLinux maps SDL (USB HID based) scancodes to Linux evdev
// keycodes.
func scancodeToLinux(scancode sdl.Scancode) uint32 {
	switch scancode {
	case sdl.SCANCODE_ESCAPE:
		return 1
	case sdl.SCANCODE_1:
		return 2
	case sdl.SCANCODE_2:
		return 3
	case sdl.SCANCODE_3:
		return 4
	case sdl.SCANCODE_4:
		return 5
	case sdl.SCANCODE_5:
		return 6
	case sdl.SCANCODE_6:
		return 7
	case sdl.SCANCODE_7:
		return 8
	case sdl.SCANCODE_8:
		return 9
	case sdl.SCANCODE_9:
		return 10
	case sdl.SCANCODE_0:
		return 11
	case sdl.SCANCODE_MINUS:
		return 12
	case sdl.SCANCODE_EQUALS:
		return 13
	case sdl.SCANCODE_BACKSPACE:
		return 14
	case sdl.SCANCODE_TAB:
		return 15
	case sdl.SCANCODE_Q:
		return 16
	case sdl.SCANCODE_W:
		return 17
	case sdl.SCANCODE_E:
		return 18
	case sdl.SCANCODE_R:
		return 19
	case sdl.SCANCODE_T:
		return 20
	case sdl.SCANCODE_Y:
		return 21
	case sdl.SCANCODE_U:
		return 22
	case sdl.SCANCODE_I:
		return 23
	case sdl.SCANCODE_O:
		return 24
	case sdl.SCANCODE_P:
		return 25
	case sdl.SCANCODE_LEFTBRACKET:
		return 26
	case sdl.SCANCODE_RIGHTBRACKET:
		return 27
	case sdl.SCANCODE_RETURN:
		return 28
	case sdl.SCANCODE_LCTRL:
		return 29
	case sdl.SCANCODE_A:
		return 30
	case sdl.SCANCODE_S:
		return 31
	case sdl.SCANCODE_D:
		return 32
	case sdl.SCANCODE_F:
		return 33
	case sdl.SCANCODE_G:
		return 34
	case sdl.SCANCODE_H:
		return 35
	case sdl.SCANCODE_J:
		return 36
	case sdl.SCANCODE_K:
		return 37
	case sdl.SCANCODE_L:
		return 38
	case sdl.SCANCODE_SEMICOLON:
		return 39
	case sdl.SCANCODE_APOSTROPHE:
		return 40
	case sdl.SCANCODE_GRAVE:
		return 41
	case sdl.SCANCODE_LSHIFT:
		return 42
	case sdl.SCANCODE_BACKSLASH:
		return 43
	case sdl.SCANCODE_Z:
		return 44
	case sdl.SCANCODE_X:
		return 45
	case sdl.SCANCODE_C:
		return 46
	case sdl.SCANCODE_V:
		return 47
	case sdl.SCANCODE_B:
		return 48
	case sdl.SCANCODE_N:
		return 49
	case sdl.SCANCODE_M:
		return 50
	case sdl.SCANCODE_COMMA:
		return 51
	case sdl.SCANCODE_PERIOD:
		return 52
	case sdl.SCANCODE_SLASH:
		return 53
	case sdl.SCANCODE_RSHIFT:
		return 54
	case sdl.SCANCODE_LALT:
		return 56
	case sdl.SCANCODE_SPACE:
		return 57
	case sdl.SCANCODE_CAPSLOCK:
		return 58
	case sdl.SCANCODE_F1:
		return 59
	case sdl.SCANCODE_F2:
		return 60
	case sdl.SCANCODE_F3:
		return 61
	case sdl.SCANCODE_F4:
		return 62
	case sdl.SCANCODE_F5:
		return 63
	case sdl.SCANCODE_F6:
		return 64
	case sdl.SCANCODE_F7:
		return 65
	case sdl.SCANCODE_F8:
		return 66
	case sdl.SCANCODE_F9:
		return 67
	case sdl.SCANCODE_F10:
		return 68
	case sdl.SCANCODE_F11:
		return 87
	case sdl.SCANCODE_F12:
		return 88
	case sdl.SCANCODE_RCTRL:
		return 97
	case sdl.SCANCODE_RALT:
		return 100
	case sdl.SCANCODE_HOME:
		return 102
	case sdl.SCANCODE_UP:
		return 103
	case sdl.SCANCODE_PAGEUP:
		return 104
	case sdl.SCANCODE_LEFT:
		return 105
	case sdl.SCANCODE_RIGHT:
		return 106
	case sdl.SCANCODE_END:
		return 107
	case sdl.SCANCODE_DOWN:
		return 108
	case sdl.SCANCODE_PAGEDOWN:
		return 109
	case sdl.SCANCODE_INSERT:
		return 110
	case sdl.SCANCODE_DELETE:
		return 111
	default:
		return 0
	}
}
