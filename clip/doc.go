// Package clip implements an interactive image cropping engine.
//
// A source image is scaled to fit a fixed viewport. The crop selection is kept
// as four insets measured from the edges of the displayed image, and is driven
// by pointer gestures: dragging the body of the selection moves it, dragging
// one of the eight handles resizes it. Once confirmed, the selection is mapped
// back to original pixels and encoded into a new image.
//
//	w, err := clip.New(clip.Props{
//		Resource: clip.URLResource("https://example.com/cat.jpg"),
//		Method:   clip.Manual,
//		ImgType:  "image/jpeg",
//	})
//	if err != nil {
//		return err
//	}
//	if err := w.Open(ctx); err != nil {
//		return err
//	}
//	w.PointerDown(clip.HandleTarget(clip.BottomRight), clip.Point{X: 1000, Y: 400})
//	w.PointerMove(clip.Point{X: 600, Y: 300})
//	w.PointerUp()
//	info, err := w.Clip(ctx)
package clip
