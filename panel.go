package main

import (
	"image/color"

	"github.com/ebitenui/ebitenui"
	imageui "github.com/ebitenui/ebitenui/image"
	"github.com/ebitenui/ebitenui/widget"
	ebtext "github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/basicfont"
)

// controlPanel is the top-right panel that drives the selected platform.
type controlPanel struct {
	ui     *ebitenui.UI
	status *widget.Text
	pause  *widget.Button
}

// newControlPanel builds the panel with colored nine-slices and the built-in
// basic font, so no theme assets are needed.
func newControlPanel(g *Game) *controlPanel {
	panelImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 180})
	btnImg := imageui.NewNineSliceColor(color.NRGBA{R: 0x33, G: 0x33, B: 0x33, A: 255})
	btnPressed := imageui.NewNineSliceColor(color.NRGBA{R: 0x55, G: 0x55, B: 0x55, A: 255})

	var face ebtext.Face = ebtext.NewGoXFace(basicfont.Face7x13)
	white := color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	btnTextColor := &widget.ButtonTextColor{Idle: white}
	stretch := widget.WidgetOpts.LayoutData(widget.RowLayoutData{Stretch: true})

	button := func(label string, onClick func()) *widget.Button {
		return widget.NewButton(
			widget.ButtonOpts.Image(&widget.ButtonImage{Idle: btnImg, Pressed: btnPressed}),
			widget.ButtonOpts.Text(label, face, btnTextColor),
			widget.ButtonOpts.WidgetOpts(stretch),
			widget.ButtonOpts.ClickedHandler(func(args *widget.ButtonClickedEventArgs) {
				onClick()
			}),
		)
	}

	p := &controlPanel{}
	p.status = widget.NewText(
		widget.TextOpts.Text("", face, white),
		widget.TextOpts.WidgetOpts(stretch),
	)
	p.pause = button("Pause", g.togglePause)

	row := func(children ...widget.PreferredSizeLocateableWidget) *widget.Container {
		columns := make([]bool, len(children))
		for i := range columns {
			columns[i] = true
		}
		c := widget.NewContainer(
			widget.ContainerOpts.Layout(widget.NewGridLayout(
				widget.GridLayoutOpts.Columns(len(children)),
				widget.GridLayoutOpts.Stretch(columns, nil),
				widget.GridLayoutOpts.Spacing(6, 0),
			)),
			widget.ContainerOpts.WidgetOpts(stretch),
		)
		for _, child := range children {
			c.AddChild(child)
		}
		return c
	}

	panel := widget.NewContainer(
		widget.ContainerOpts.BackgroundImage(panelImg),
		widget.ContainerOpts.Layout(widget.NewRowLayout(
			widget.RowLayoutOpts.Direction(widget.DirectionVertical),
			widget.RowLayoutOpts.Spacing(8),
			widget.RowLayoutOpts.Padding(widget.Insets{Top: 12, Bottom: 12, Left: 14, Right: 14}),
		)),
		widget.ContainerOpts.WidgetOpts(
			widget.WidgetOpts.MinSize(260, 0),
			widget.WidgetOpts.LayoutData(widget.AnchorLayoutData{
				HorizontalPosition: widget.AnchorLayoutPositionEnd,
				VerticalPosition:   widget.AnchorLayoutPositionStart,
			}),
		),
	)
	panel.AddChild(p.status)
	panel.AddChild(row(
		button("< Prev", func() { g.selectPlatform(-1) }),
		button("Next >", func() { g.selectPlatform(1) }),
	))
	panel.AddChild(row(
		button("Start", g.startSelected),
		button("Stop", g.stopSelected),
		button("Reset", g.resetSelected),
	))
	panel.AddChild(row(
		p.pause,
		button("Reload", g.reload),
	))

	root := widget.NewContainer(
		widget.ContainerOpts.Layout(widget.NewAnchorLayout()),
	)
	root.AddChild(panel)

	p.ui = &ebitenui.UI{Container: root}
	return p
}

func (p *controlPanel) refresh(status string, paused bool) {
	p.status.Label = status
	label := "Pause"
	if paused {
		label = "Resume"
	}
	if text := p.pause.Text(); text != nil {
		text.Label = label
	}
}
