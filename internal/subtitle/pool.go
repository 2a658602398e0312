package subtitle

import (
	"image"
	"sync"
)

// imagePool reuses *image.RGBA blocks between rasterizations to keep
// pressure off the garbage collector. A render run rasterizes many blocks
// of recurring sizes (same style, similar text lengths), so pooling per
// bounds pays off. Buffers come back zeroed.
type imagePool struct {
	pools map[string]*sync.Pool
	mu    sync.RWMutex
}

var globalPool = &imagePool{
	pools: make(map[string]*sync.Pool),
}

// GetImage returns a cleared *image.RGBA for the rectangle, reusing a
// pooled buffer when one of the same size is available.
func GetImage(rect image.Rectangle) *image.RGBA {
	return globalPool.get(rect)
}

// PutImage returns a buffer to the pool for reuse. The caller must not
// touch the image afterwards.
func PutImage(img *image.RGBA) {
	globalPool.put(img)
}

func (p *imagePool) get(rect image.Rectangle) *image.RGBA {
	key := rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() any {
					return image.NewRGBA(rect)
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	img := pool.Get().(*image.RGBA)
	for i := range img.Pix {
		img.Pix[i] = 0
	}
	return img
}

func (p *imagePool) put(img *image.RGBA) {
	if img == nil {
		return
	}
	key := img.Rect.String()
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}
