package rollout

import (
	"fmt"

	"github.com/phaseforge/hgn/go-trainer/internal/tensor"
)

// #region conversions
// ConcatChannels folds a frame sequence (batch, seq, c, h, w) into the
// channel-stacked representation the encoder consumes:
// (batch, seq*c, h, w). Row-major layout makes this a reshape.
func ConcatChannels(frames *tensor.Tensor) *tensor.Tensor {
	if len(frames.Shape) != 5 {
		panic(fmt.Sprintf("rollout: concatChannels expects 5-D frames, got %v", frames.Shape))
	}
	b, s, c, h, w := frames.Shape[0], frames.Shape[1], frames.Shape[2], frames.Shape[3], frames.Shape[4]
	return frames.Reshape(b, s*c, h, w)
}

// #endregion conversions
