package scene

import (
	"fmt"
	"sync"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-gltf/engine/camera"
	"github.com/Carmen-Shannon/oxy-gltf/engine/culling"
	"github.com/Carmen-Shannon/oxy-gltf/engine/model"
	"go.uber.org/zap"
)

func (s *scene) Frame() (FrameStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var stats FrameStats
	s.finishLoading(&stats)

	s.resources.Instances.Clear()
	s.resources.Joints.Clear()
	s.draws = s.draws[:0]
	for _, url := range s.modelOrder {
		e := s.models[url]
		for i := range e.instances {
			e.instances[i].Clear()
			e.ranges[i].Clear()
		}
	}

	animated := s.progressAnimations(&stats)
	s.sampleAnimations(animated)
	s.pushJoints(animated, &stats)
	s.pushInstances(&stats)
	if err := s.uploadInstances(); err != nil {
		return stats, err
	}

	uniform := s.cam.Uniform()
	s.resources.Camera.Clear()
	if _, err := s.resources.Camera.Insert([]camera.GPUCameraUniform{uniform}); err != nil {
		return stats, fmt.Errorf("write camera uniform: %w", err)
	}

	stats.Instances = len(s.order)
	stats.Draws = len(s.draws)
	stats.JointBuffers = s.resources.Joints.Count()
	return stats, nil
}

// finishLoading moves every completed load into its entry. A failed load leaves the previous
// model in place, if any. The loader has already logged the failure.
func (s *scene) finishLoading(stats *FrameStats) {
	for _, url := range s.modelOrder {
		e := s.models[url]
		switch {
		case e.pending != nil:
			if m, ok := e.pending.Take(); ok {
				e.static = m
				e.pending = nil
				s.logger.Info("model ready", zap.String("url", url), zap.Int("primitives", len(m.Primitives())))
			} else if e.pending.Err() != nil {
				e.pending = nil
			}
		case e.pendingAnimated != nil:
			if m, ok := e.pendingAnimated.Take(); ok {
				e.anim = m
				e.pendingAnimated = nil
				s.dropStalePoses(url)
				s.logger.Info("animated model ready", zap.String("url", url), zap.Int("joints", m.JointCount()))
			} else if e.pendingAnimated.Err() != nil {
				e.pendingAnimated = nil
			}
		}
		if e.isPending() {
			stats.PendingLoads++
		}
		if e.current() != nil {
			stats.Models++
		}
	}
}

// dropStalePoses forgets the poses cloned from a model that has just been replaced.
func (s *scene) dropStalePoses(url string) {
	for _, id := range s.order {
		if inst := s.instances[id]; inst.url == url {
			inst.joints = nil
			inst.jointsModel = nil
		}
	}
}

// progressAnimations advances every animated instance whose model is ready and returns them.
// Instances that cannot be animated are logged through the sampled logger and skipped.
func (s *scene) progressAnimations(stats *FrameStats) []*instance {
	var ready []*instance
	dt := 1 / s.tickRate
	for _, id := range s.order {
		inst := s.instances[id]
		if !inst.animated {
			continue
		}
		inst.posed = false
		stats.AnimatedInstances++

		e, ok := s.models[inst.url]
		if !ok || e.anim == nil {
			if !ok || !e.isPending() {
				s.frameLog.Warn("animated model not loaded", zap.String("url", inst.url))
			}
			stats.Skipped++
			continue
		}
		animations := e.anim.Animations()
		if inst.state.AnimationIndex < 0 || inst.state.AnimationIndex >= len(animations) {
			s.frameLog.Warn("animation index out of range",
				zap.String("url", inst.url),
				zap.Int("index", inst.state.AnimationIndex),
				zap.Int("count", len(animations)),
			)
			stats.Skipped++
			continue
		}

		if inst.joints == nil {
			inst.joints = e.anim.NewJoints()
			inst.jointsModel = e.anim
		}
		if inst.joints == nil {
			s.frameLog.Warn("animated model has no skeleton", zap.String("url", inst.url))
			stats.Skipped++
			continue
		}
		inst.state.Advance(dt, animations[inst.state.AnimationIndex].TotalTime)
		ready = append(ready, inst)
	}
	return ready
}

// sampleAnimations samples each instance's clip and resolves its skinning transforms on the
// worker pool, waiting for every instance before returning.
func (s *scene) sampleAnimations(ready []*instance) {
	var wg sync.WaitGroup
	for i, inst := range ready {
		wg.Add(1)
		m := inst.jointsModel
		s.pool.SubmitTask(worker.Task{
			ID: i,
			Do: func() (any, error) {
				defer wg.Done()
				m.Animations()[inst.state.AnimationIndex].Animate(inst.joints, inst.state.Time)
				inst.skin = inst.joints.Joints(m.JointToNode(), m.InverseBind(), m.DepthFirstNodes(), inst.skin[:0])
				return nil, nil
			},
		})
	}
	wg.Wait()
}

// pushJoints writes every sampled skin into the joint buffers in instance order.
// An instance whose joints cannot be written is logged and skipped for this frame.
func (s *scene) pushJoints(ready []*instance, stats *FrameStats) {
	for _, inst := range ready {
		offset, err := s.resources.Joints.Push(inst.skin)
		if err != nil {
			s.frameLog.Warn("joints push failed", zap.String("url", inst.url), zap.Error(err))
			stats.Skipped++
			continue
		}
		inst.jointsOffset = offset
		inst.posed = true
		stats.JointsPushed += len(inst.skin)
	}
}

// cullingParams returns the camera's culling parameters, or parameters that pass everything
// when culling is disabled.
func (s *scene) cullingParams() culling.Params {
	params := s.cam.CullingParams()
	if s.cullingDisabled {
		params.Spheres = culling.BoundingSphereParams{}
		params.Frustum = nil
	}
	return params
}

// pushInstances culls and LOD-selects static instances and places animated ones at LOD 0.
func (s *scene) pushInstances(stats *FrameStats) {
	params := s.cullingParams()
	for _, id := range s.order {
		inst := s.instances[id]
		e, ok := s.models[inst.url]
		if !ok {
			if !inst.animated {
				s.frameLog.Warn("model not loaded", zap.String("url", inst.url))
				stats.Skipped++
			}
			continue
		}

		if inst.animated {
			if !inst.posed || inst.jointsModel != e.anim {
				continue
			}
			list := e.list(inst.jointsOffset.Buffer)
			stats.PrimitivesPushed += culling.PushAnimatedInstances(list, e.anim.Primitives(), inst.transform, inst.jointsOffset.Offset)
			continue
		}

		if e.static == nil {
			if !e.isPending() {
				s.frameLog.Warn("model not loaded", zap.String("url", inst.url))
			}
			stats.Skipped++
			continue
		}
		pushed, culled := culling.PushModelInstances(e.list(0), e.static.Primitives(), inst.transform, &params)
		stats.PrimitivesPushed += pushed
		stats.PrimitivesCulled += culled
	}
}

// list returns the instance list for a joint buffer, growing the entry as needed.
func (e *modelEntry) list(jointBuffer int) *culling.Instances {
	for len(e.instances) <= jointBuffer {
		e.instances = append(e.instances, culling.Instances{})
		e.ranges = append(e.ranges, culling.InstanceRanges{})
	}
	return &e.instances[jointBuffer]
}

// uploadInstances writes every non-empty instance list into the shared instance buffer and
// records one Draw per list.
func (s *scene) uploadInstances() error {
	for _, url := range s.modelOrder {
		e := s.models[url]
		m := e.current()
		if m == nil {
			continue
		}
		primitives := m.Primitives()
		for jb := range e.instances {
			err := e.instances[jb].Each(func(p, l int, list []model.GPUInstance) error {
				if len(list) == 0 || p >= len(primitives) || l >= len(primitives[p].Lods) {
					return nil
				}
				rng, err := s.resources.Instances.Insert(list)
				if err != nil {
					return fmt.Errorf("upload instances for %s: %w", url, err)
				}
				e.ranges[jb].Push(p, l, rng)
				lod := primitives[p].Lods[l]
				s.draws = append(s.draws, Draw{
					URL:           url,
					Animated:      e.animated,
					Primitive:     p,
					Lod:           l,
					IndexRange:    lod.IndexRange,
					MaterialIndex: lod.MaterialIndex,
					Instances:     rng,
					JointBuffer:   jb,
				})
				return nil
			})
			if err != nil {
				return err
			}
		}
	}
	return nil
}
