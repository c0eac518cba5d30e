package processor

import (
	"github.com/beevik/etree"
	"go.uber.org/zap"

	"thmlconverter/state"
)

// Diagnostic categories used by the reporter ledger.
const (
	rptUnhandledTag = "unhandled tag"
	rptUnknownAttr  = "unknown attribute"
	rptOrphanedNote = "orphaned note"
	rptMissingField = "missing field"
	rptUnknownRole  = "unknown creator role"
	rptImageDropped = "image dropped"
	rptBadLanguage  = "unrecognized language"
)

// docContext carries all cross-node mutable state of a single document
// transformation. The handler catalogue itself is stateless, so nothing
// leaks between documents.
type docContext struct {
	env *state.LocalEnv
	log *zap.Logger

	// TOC registration
	tocCount int
	tocItems []*TocItem
	tocNodes map[*etree.Element]*TocItem

	// footnote relocation
	notes       []*noteRec
	strictNotes bool

	// trailing <br/> insertion
	lines []*etree.Element

	meta *Metadata

	// image references, resolved by the processor after descent
	images        []*ImageRef
	collectImages bool

	scripRefURL string
}

func newDocContext(env *state.LocalEnv) *docContext {
	ctx := &docContext{
		env:         env,
		log:         env.Log,
		tocNodes:    make(map[*etree.Element]*TocItem),
		meta:        NewMetadata(),
		scripRefURL: "https://www.biblegateway.com/passage/?search=%s&version=NIV",
	}
	if env.Cfg != nil {
		ctx.strictNotes = env.Cfg.Doc.StrictNotes
		ctx.collectImages = env.Cfg.Doc.Images.Download
		if len(env.Cfg.Doc.ScripRefURL) > 0 {
			ctx.scripRefURL = env.Cfg.Doc.ScripRefURL
		}
	}
	return ctx
}

func (ctx *docContext) warn(category, detail string, msg string, fields ...zap.Field) {
	ctx.log.Warn(msg, fields...)
	ctx.env.Rpt.Add(category, detail)
}

func (ctx *docContext) warnUnhandled(from *etree.Element) {
	ctx.warn(rptUnhandledTag, from.Tag, "Element not properly handled, unwrapping",
		zap.String("tag", from.Tag), zap.String("path", from.GetPath()))
}

func (ctx *docContext) warnAttr(key string, from *etree.Element) {
	ctx.warn(rptUnknownAttr, key, "Ignoring unknown attribute",
		zap.String("attr", key), zap.String("tag", from.Tag), zap.String("path", from.GetPath()))
}
