package xspan

import "fmt"

// Surface 可独立启停的插桩面
type Surface string

const (
	SurfaceHTTPClient Surface = "http-client"
	SurfaceRedis      Surface = "redis"
	SurfaceDB         Surface = "db"
	SurfaceMethod     Surface = "method-call"
	SurfaceException  Surface = "exception"
)

// Surfaces 返回全部插桩面
func Surfaces() []Surface {
	return []Surface{SurfaceHTTPClient, SurfaceRedis, SurfaceDB, SurfaceMethod, SurfaceException}
}

// ParseSurface 解析插桩面名称
func ParseSurface(s string) (Surface, error) {
	for _, surface := range Surfaces() {
		if string(surface) == s {
			return surface, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownSurface, s)
}

// Switches 各插桩面的开关。启动时构建，之后只读。
type Switches struct {
	HTTPClient bool
	Redis      bool
	DB         bool
	Method     bool
	Exception  bool
}

// DefaultSwitches 默认开关：除 method-call（实验性）外全部开启
func DefaultSwitches() Switches {
	return Switches{
		HTTPClient: true,
		Redis:      true,
		DB:         true,
		Method:     false,
		Exception:  true,
	}
}

// Enabled 判断插桩面是否开启，未知插桩面视为关闭
func (s Switches) Enabled(surface Surface) bool {
	switch surface {
	case SurfaceHTTPClient:
		return s.HTTPClient
	case SurfaceRedis:
		return s.Redis
	case SurfaceDB:
		return s.DB
	case SurfaceMethod:
		return s.Method
	case SurfaceException:
		return s.Exception
	default:
		return false
	}
}
