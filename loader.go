/*
Copyright 2025 The goARRG Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package nova

import (
	"bytes"
	"sync"
	"sync/atomic"

	"goarrg.com/debug"
	"goarrg.com/gmath"

	"goarrg.com/nova/internal/hal"
	"goarrg.com/nova/internal/util"
)

/*
Loader uploads buffers and images on a background goroutine through a staging
buffer of Config.StagingBufferSize bytes. Uploads run one at a time in the
order they were requested. Loader is safe for concurrent use.
*/
type Loader struct {
	ctx         *Context
	stagingSize uint64

	mtx      sync.RWMutex
	closed   bool
	closing  atomic.Bool
	requests chan loadRequest
	done     chan struct{}
}

type loadRequest interface {
	load(s *loaderState)
	fail(err error)
}

type loaderState struct {
	ctx        *Context
	queueID    QueueID
	pool       *Pool
	list       *List
	fence      *Fence
	staging    *Buffer
	submission Submission
}

func newLoaderState(ctx *Context) (*loaderState, error) {
	s := &loaderState{ctx: ctx, queueID: ctx.queues.Transfer()}
	var err error
	if s.pool, err = NewPool(ctx, s.queueID); err != nil {
		s.destroy()
		return nil, err
	}
	if s.list, err = NewList(s.pool); err != nil {
		s.destroy()
		return nil, err
	}
	if s.fence, err = NewFence(ctx, false); err != nil {
		s.destroy()
		return nil, err
	}
	if s.staging, err = NewBuffer(ctx, BufferKindStaging, ctx.config.StagingBufferSize); err != nil {
		s.destroy()
		return nil, debug.ErrorWrapf(err, "Failed to create staging buffer")
	}
	return s, nil
}

func (s *loaderState) destroy() {
	if s.staging != nil {
		s.staging.Destroy()
	}
	if s.fence != nil {
		s.fence.Destroy()
	}
	if s.list != nil {
		s.list.Destroy()
	}
	if s.pool != nil {
		s.pool.Destroy()
	}
}

// submit runs the recorded list on the transfer queue and waits for it to complete.
func (s *loaderState) submit() error {
	s.submission.Clear()
	s.submission.QueueID = s.queueID
	s.submission.Lists = append(s.submission.Lists, s.list)
	s.submission.Fence = s.fence
	if err := s.ctx.queues.Submit(&s.submission); err != nil {
		return err
	}
	return s.fence.WaitAndReset()
}

func (s *loaderState) loadBuffer(kind BufferKind, stride uint64, data []byte) (*Buffer, error) {
	dst, err := newBuffer(s.ctx, kind, uint64(len(data)), stride)
	if err != nil {
		return nil, err
	}
	s.staging.HostWrite(0, data)

	r := s.list.Record()
	r.copyBytes(s.staging, dst, hal.BufferCopy{Size: uint64(len(data))})
	r.Finish()

	if err := s.submit(); err != nil {
		dst.Destroy()
		return nil, debug.ErrorWrapf(err, "Failed to upload %s buffer", kind)
	}
	return dst, nil
}

func (s *loaderState) loadImage(size gmath.Extent2i32, data []byte) (*Image, error) {
	dst, err := NewImage(s.ctx, size, FormatR8G8B8A8Srgb, ImageUsageSampled|ImageUsageTransferDst)
	if err != nil {
		return nil, err
	}
	s.staging.HostWrite(0, data)

	r := s.list.Record()
	r.PipelineBarrier(
		StageRange{Src: PipelineStageBottomOfPipe, Dst: PipelineStageTransfer},
		ImageBarrier{
			Image:  dst,
			Access: AccessTransition{Src: AccessNone, Dst: AccessTransferWrite},
			Layout: LayoutTransition{Src: ImageLayoutUndefined, Dst: ImageLayoutTransferDstOptimal},
		},
	)
	r.CopyBufferToImage(s.staging, dst, ImageLayoutTransferDstOptimal, ImageCopyRegion{})
	// Readers submit after the fence wait, the release needs no destination access.
	r.PipelineBarrier(
		StageRange{Src: PipelineStageTransfer, Dst: PipelineStageTopOfPipe},
		ImageBarrier{
			Image:  dst,
			Access: AccessTransition{Src: AccessTransferWrite, Dst: AccessNone},
			Layout: LayoutTransition{Src: ImageLayoutTransferDstOptimal, Dst: ImageLayoutShaderReadOnlyOptimal},
		},
	)
	r.Finish()

	if err := s.submit(); err != nil {
		dst.Destroy()
		return nil, debug.ErrorWrapf(err, "Failed to upload image")
	}
	return dst, nil
}

// NewLoader starts the loader goroutine and returns once its resources are created.
func NewLoader(ctx *Context) (*Loader, error) {
	l := &Loader{
		ctx:         ctx,
		stagingSize: ctx.config.StagingBufferSize,
		requests:    make(chan loadRequest, 256),
		done:        make(chan struct{}),
	}
	setup := make(chan error)
	go l.run(setup)
	if err := <-setup; err != nil {
		return nil, debug.ErrorWrapf(err, "Failed to start loader")
	}
	instance.logger.IPrintf("Loader started on %s with %s staging", ctx.queues.Transfer(), byteSize(l.stagingSize))
	return l, nil
}

func (l *Loader) run(setup chan<- error) {
	defer close(l.done)

	state, err := newLoaderState(l.ctx)
	setup <- err
	if err != nil {
		return
	}
	defer state.destroy()

	for req := range l.requests {
		if l.closing.Load() {
			req.fail(ErrorLoaderShutDown{})
			continue
		}
		req.load(state)
	}
	instance.logger.IPrintf("Loader stopped")
}

func (l *Loader) send(req loadRequest) {
	l.mtx.RLock()
	defer l.mtx.RUnlock()
	if l.closed {
		req.fail(ErrorLoaderShutDown{})
		return
	}
	l.requests <- req
}

/*
Close stops the loader after the upload in progress completes, requests still
queued fail with ErrorLoaderShutDown. Close blocks until the loader goroutine
exits and may be called more than once.
*/
func (l *Loader) Close() {
	l.closing.Store(true)
	l.mtx.Lock()
	if !l.closed {
		l.closed = true
		close(l.requests)
	}
	l.mtx.Unlock()
	<-l.done
}

func (l *Loader) checkRequestSize(n uint64) {
	if n > l.stagingSize {
		abort("Upload of %s exceeds the loader's %s staging buffer", byteSize(n), byteSize(l.stagingSize))
	}
}

type bufferRequest struct {
	kind   BufferKind
	stride uint64
	data   []byte
	result *LoaderResult[*Buffer]
}

func (req *bufferRequest) load(s *loaderState) {
	instance.logger.VPrintf("Uploading %s %s buffer", byteSize(uint64(len(req.data))), req.kind)
	req.result.send(s.loadBuffer(req.kind, req.stride, req.data))
}

func (req *bufferRequest) fail(err error) {
	req.result.send(nil, err)
}

// LoadBytes uploads data into a new buffer of the given kind.
func (l *Loader) LoadBytes(kind BufferKind, data []byte) *LoaderResult[*Buffer] {
	return l.loadBuffer(kind, 1, bytes.Clone(data))
}

// LoadBuffer uploads data into a new buffer of the given kind with a stride of one T.
func LoadBuffer[T any](l *Loader, kind BufferKind, data []T) *LoaderResult[*Buffer] {
	return l.loadBuffer(kind, util.SizeOf[T](), bytes.Clone(util.SliceBytes(data)))
}

func (l *Loader) loadBuffer(kind BufferKind, stride uint64, data []byte) *LoaderResult[*Buffer] {
	l.checkRequestSize(uint64(len(data)))
	result := newLoaderResult[*Buffer](l)
	req := &bufferRequest{kind: kind, stride: stride, data: data, result: result}
	if len(data) == 0 {
		req.fail(debug.Errorf("Cannot upload an empty %s buffer", kind))
		return result
	}
	l.send(req)
	return result
}

type imageRequest struct {
	size   gmath.Extent2i32
	data   []byte
	result *LoaderResult[*Image]
}

func (req *imageRequest) load(s *loaderState) {
	instance.logger.VPrintf("Uploading %dx%d image", req.size.X, req.size.Y)
	req.result.send(s.loadImage(req.size, req.data))
}

func (req *imageRequest) fail(err error) {
	req.result.send(nil, err)
}

/*
LoadImage uploads tightly packed RGBA8 pixels into a new sampled image. The
image is in ImageLayoutShaderReadOnlyOptimal once the result is received.
*/
func (l *Loader) LoadImage(size gmath.Extent2i32, rgba []byte) *LoaderResult[*Image] {
	if size.X < 1 || size.Y < 1 {
		abort("Image size must be >= 1: %+v", size)
	}
	if want := uint64(size.X) * uint64(size.Y) * 4; uint64(len(rgba)) != want {
		abort("LoadImage: got %d bytes, a %dx%d RGBA8 image needs %d", len(rgba), size.X, size.Y, want)
	}
	l.checkRequestSize(uint64(len(rgba)))
	result := newLoaderResult[*Image](l)
	l.send(&imageRequest{size: size, data: bytes.Clone(rgba), result: result})
	return result
}

type loaderReply[T any] struct {
	value T
	err   error
}

// LoaderResult is the pending result of one upload.
type LoaderResult[T any] struct {
	reply chan loaderReply[T]
	done  <-chan struct{}

	mtx      sync.Mutex
	received bool
	cached   loaderReply[T]
}

func newLoaderResult[T any](l *Loader) *LoaderResult[T] {
	return &LoaderResult[T]{reply: make(chan loaderReply[T], 1), done: l.done}
}

func (r *LoaderResult[T]) send(v T, err error) {
	r.reply <- loaderReply[T]{value: v, err: err}
}

func (r *LoaderResult[T]) store(reply loaderReply[T]) (T, error) {
	r.received = true
	r.cached = reply
	return reply.value, reply.err
}

// Recv blocks until the upload completed, later calls return the same result.
func (r *LoaderResult[T]) Recv() (T, error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.received {
		return r.cached.value, r.cached.err
	}
	select {
	case reply := <-r.reply:
		return r.store(reply)
	case <-r.done:
		select {
		case reply := <-r.reply:
			return r.store(reply)
		default:
			var zero T
			return r.store(loaderReply[T]{value: zero, err: ErrorLoaderShutDown{}})
		}
	}
}

// TryRecv returns ok == false when the upload is still pending.
func (r *LoaderResult[T]) TryRecv() (value T, ok bool, err error) {
	r.mtx.Lock()
	defer r.mtx.Unlock()
	if r.received {
		return r.cached.value, true, r.cached.err
	}
	select {
	case reply := <-r.reply:
		value, err = r.store(reply)
		return value, true, err
	default:
	}
	select {
	case <-r.done:
		select {
		case reply := <-r.reply:
			value, err = r.store(reply)
		default:
			value, err = r.store(loaderReply[T]{err: ErrorLoaderShutDown{}})
		}
		return value, true, err
	default:
		return value, false, nil
	}
}
