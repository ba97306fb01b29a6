package loader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-gltf/common"
	"github.com/Carmen-Shannon/oxy-gltf/engine/animator"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"
)

// gltfAnimationExtractorImpl is the implementation of the gltfAnimationExtractor interface.
type gltfAnimationExtractorImpl struct {
	parser gltfParser
	logger *zap.Logger
}

// gltfAnimationExtractor defines the interface for extracting animation data from a parsed glTF document.
// Channels target node indices directly; the animated model evaluates every node of the document.
type gltfAnimationExtractor interface {
	// ExtractAnimation extracts a single animation by index.
	// Morph target weights and unknown paths are skipped with a warning.
	//
	// Parameters:
	//   - animIndex: the index of the animation in the document
	//
	// Returns:
	//   - *animator.Animation: the extracted animation
	//   - error: error if a sampler is malformed
	ExtractAnimation(animIndex int) (*animator.Animation, error)

	// ExtractAllAnimations extracts every animation from the document.
	//
	// Returns:
	//   - []*animator.Animation: all extracted animations in document order
	//   - error: error if extraction fails
	ExtractAllAnimations() ([]*animator.Animation, error)
}

var _ gltfAnimationExtractor = &gltfAnimationExtractorImpl{}

// newGLTFAnimationExtractor creates a new animation extractor for a parsed document.
//
// Parameters:
//   - parser: the parser containing a loaded document
//   - logger: receives warnings
//
// Returns:
//   - gltfAnimationExtractor: the animation extractor
func newGLTFAnimationExtractor(parser gltfParser, logger *zap.Logger) gltfAnimationExtractor {
	return &gltfAnimationExtractorImpl{parser: parser, logger: logger}
}

func (e *gltfAnimationExtractorImpl) ExtractAllAnimations() ([]*animator.Animation, error) {
	doc := e.parser.Document()
	out := make([]*animator.Animation, 0, len(doc.Animations))
	for i := range doc.Animations {
		a, err := e.ExtractAnimation(i)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, nil
}

func (e *gltfAnimationExtractorImpl) ExtractAnimation(animIndex int) (*animator.Animation, error) {
	doc := e.parser.Document()
	if animIndex < 0 || animIndex >= len(doc.Animations) {
		return nil, fmt.Errorf("animation %d: %w", animIndex, errIndexOutOfRange)
	}
	ga := &doc.Animations[animIndex]

	var (
		translations []animator.Channel[mgl32.Vec3]
		rotations    []animator.Channel[mgl32.Quat]
		scales       []animator.Channel[float32]
	)

	for ci, ch := range ga.Channels {
		if ch.Target.Node == nil {
			continue
		}
		node := *ch.Target.Node
		if node < 0 || node >= len(doc.Nodes) {
			return nil, fmt.Errorf("animation %q channel %d node %d: %w", ga.Name, ci, node, errIndexOutOfRange)
		}
		if ch.Sampler < 0 || ch.Sampler >= len(ga.Samplers) {
			return nil, fmt.Errorf("animation %q channel %d sampler %d: %w", ga.Name, ci, ch.Sampler, errIndexOutOfRange)
		}
		sampler := &ga.Samplers[ch.Sampler]

		switch ch.Target.Path {
		case gltfAnimPathTranslation, gltfAnimPathRotation, gltfAnimPathScale:
		default:
			e.logger.Warn("animation property not supported, ignoring",
				zap.String("animation", ga.Name), zap.String("path", ch.Target.Path))
			continue
		}

		inputs, err := e.readInputs(sampler)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d: %w", ga.Name, ci, err)
		}
		interp := animator.ParseInterpolation(sampler.Interpolation)

		outView, err := e.parser.Accessor(sampler.Output)
		if err != nil {
			return nil, fmt.Errorf("animation %q channel %d output: %w", ga.Name, ci, err)
		}

		switch ch.Target.Path {
		case gltfAnimPathTranslation:
			values, err := readF32x3(outView)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d translation: %w", ga.Name, ci, err)
			}
			c := animator.Channel[mgl32.Vec3]{Interpolation: interp, Inputs: inputs, Outputs: values, NodeIndex: node}
			if err := validateChannel(&c, ga.Name, ci); err != nil {
				return nil, err
			}
			translations = append(translations, c)

		case gltfAnimPathRotation:
			values, err := readF32x4(outView)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d rotation: %w", ga.Name, ci, err)
			}
			quats := make([]mgl32.Quat, len(values))
			for i, v := range values {
				quats[i] = mgl32.Quat{W: v[3], V: mgl32.Vec3{v[0], v[1], v[2]}}
			}
			c := animator.Channel[mgl32.Quat]{Interpolation: interp, Inputs: inputs, Outputs: quats, NodeIndex: node}
			if err := validateChannel(&c, ga.Name, ci); err != nil {
				return nil, err
			}
			rotations = append(rotations, c)

		case gltfAnimPathScale:
			values, err := readF32x3(outView)
			if err != nil {
				return nil, fmt.Errorf("animation %q channel %d scale: %w", ga.Name, ci, err)
			}
			uniform := make([]float32, len(values))
			for i, v := range values {
				uniform[i] = common.MaxOf(v[0], v[1], v[2])
			}
			c := animator.Channel[float32]{Interpolation: interp, Inputs: inputs, Outputs: uniform, NodeIndex: node}
			if err := validateChannel(&c, ga.Name, ci); err != nil {
				return nil, err
			}
			scales = append(scales, c)
		}
	}

	return animator.NewAnimation(ga.Name, translations, rotations, scales), nil
}

func (e *gltfAnimationExtractorImpl) readInputs(sampler *gltfAnimSampler) ([]float32, error) {
	view, err := e.parser.Accessor(sampler.Input)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	inputs, err := readF32(view)
	if err != nil {
		return nil, fmt.Errorf("input: %w", err)
	}
	return inputs, nil
}

type validator interface {
	Validate() error
}

func validateChannel(c validator, animation string, channel int) error {
	if err := c.Validate(); err != nil {
		return fmt.Errorf("animation %q channel %d: %w: %w", animation, channel, ErrMalformedAsset, err)
	}
	return nil
}
