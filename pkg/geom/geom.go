// Package geom 提供矩形与坐标计算工具
package geom

// Point 表示二维坐标点
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ManhattanDistance 计算两点的曼哈顿距离
func (p Point) ManhattanDistance(other Point) int {
	return abs(p.X-other.X) + abs(p.Y-other.Y)
}

// Rect 轴对齐矩形 (x, y, width, height)
type Rect struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// NewRect 创建矩形
func NewRect(x, y, width, height int) Rect {
	return Rect{X: x, Y: y, Width: width, Height: height}
}

// Empty 判断矩形是否为空
func (r Rect) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Right 返回右边界 (不含)
func (r Rect) Right() int {
	return r.X + r.Width
}

// Bottom 返回下边界 (不含)
func (r Rect) Bottom() int {
	return r.Y + r.Height
}

// Center 返回中心点
func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

// Area 返回面积
func (r Rect) Area() int {
	if r.Empty() {
		return 0
	}
	return r.Width * r.Height
}

// Expand 向四周扩展 margin 像素
func (r Rect) Expand(margin int) Rect {
	return Rect{
		X:      r.X - margin,
		Y:      r.Y - margin,
		Width:  r.Width + margin*2,
		Height: r.Height + margin*2,
	}
}

// Translate 平移矩形
func (r Rect) Translate(dx, dy int) Rect {
	return Rect{X: r.X + dx, Y: r.Y + dy, Width: r.Width, Height: r.Height}
}

// Union 返回包含两个矩形的最小矩形
func (r Rect) Union(other Rect) Rect {
	if r.Empty() {
		return other
	}
	if other.Empty() {
		return r
	}
	x := min(r.X, other.X)
	y := min(r.Y, other.Y)
	right := max(r.Right(), other.Right())
	bottom := max(r.Bottom(), other.Bottom())
	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Intersect 返回两个矩形的交集，不相交时返回空矩形
func (r Rect) Intersect(other Rect) Rect {
	x := max(r.X, other.X)
	y := max(r.Y, other.Y)
	right := min(r.Right(), other.Right())
	bottom := min(r.Bottom(), other.Bottom())
	if right <= x || bottom <= y {
		return Rect{}
	}
	return Rect{X: x, Y: y, Width: right - x, Height: bottom - y}
}

// Intersects 判断两个矩形是否相交
func (r Rect) Intersects(other Rect) bool {
	return !r.Intersect(other).Empty()
}

// Contains 判断点是否在矩形内
func (r Rect) Contains(p Point) bool {
	return p.X >= r.X && p.X < r.Right() && p.Y >= r.Y && p.Y < r.Bottom()
}

// IoU 计算交并比 (Intersection over Union)，范围 [0, 1]
// 完全相同的矩形返回 1.0，不相交返回 0.0
func (r Rect) IoU(other Rect) float64 {
	inter := r.Intersect(other).Area()
	if inter == 0 {
		return 0
	}
	union := r.Area() + other.Area() - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
