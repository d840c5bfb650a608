package scene

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/Faultbox/midgard-3mf/pkg/export"
	"github.com/Faultbox/midgard-3mf/pkg/texture"
)

// TexturePalette is Palette with each colour replaced by the average of its
// texture image, loaded from data/texture/. Textures that are missing, fail
// to decode or are fully transparent keep their hashed colour.
func (s *Scene) TexturePalette(ctx context.Context, src Source, opts ...Option) ([]export.NamedColor, error) {
	cfg := newLoadConfig(opts)
	out := s.Palette()
	averaged := 0
	for i, tex := range s.Textures {
		if tex == "" {
			continue
		}
		name := "data/texture/" + strings.ReplaceAll(tex, "\\", "/")
		data, err := src.Load(ctx, name)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			cfg.log.Debug("texture not found", zap.String("texture", name), zap.Error(err))
			continue
		}
		img, err := texture.Decode(name, data)
		if err != nil {
			cfg.log.Warn("texture skipped", zap.String("texture", name), zap.Error(err))
			continue
		}
		if c, ok := texture.Average(img); ok {
			out[i].Color = c
			averaged++
		}
	}
	cfg.log.Debug("palette built",
		zap.Int("textures", len(out)),
		zap.Int("averaged", averaged))
	return out, nil
}
