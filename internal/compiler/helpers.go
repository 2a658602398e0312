package compiler

import (
	"errors"

	"github.com/kazuvin/teto/internal/script"
	"github.com/kazuvin/teto/internal/subtitle"
	"github.com/kazuvin/teto/internal/teterr"
)

func asTetErr(err error, target **teterr.Error) bool {
	return errors.As(err, target)
}

func styleKey(cfg script.SubtitleStyleConfig) string {
	return subtitle.StyleKey(cfg)
}
