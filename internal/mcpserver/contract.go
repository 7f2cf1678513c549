package mcpserver

const fence = "```"

// NoteFormatContract describes the markdown note format that LLM consumers
// should follow when creating or updating notes.
const NoteFormatContract = `# notegraph Note Format Contract

A note is one markdown file: YAML frontmatter, a markdown body, and an
optional trailing task section.

## Structure

` + fence + `markdown
---
id: 3f2a9c1e-5b7d-4e8f-9a0b-1c2d3e4f5a6b   # OPTIONAL – omit for new notes, keep when editing
title: Human-readable title                # REQUIRED – unique, shown by every link
created: 2025-01-15T09:30:00.000Z          # OPTIONAL – RFC 3339
color: bg-white                            # OPTIONAL – card color class
tags: ["tag-one", "tag-two"]               # OPTIONAL – flow list of strings
---

Body text in standard markdown.

Link to another note with [[Other note title]].
Embed another note's content with ![[Other note title]].

## Tasks
- [ ] Write the draft
  - priority: high
  - status: in_progress
  - progress: 40
- [x] Collect feedback
` + fence + `

## Rules

1. **Titles identify notes.** ` + "`[[Title]]`" + ` and ` + "`![[Title]]`" + ` name the target by its
   current title (case-insensitive). Links to titles that do not exist are kept and
   shown as missing.
2. **Links survive renames.** Once stored, links point at note ids; renaming a note
   rewrites every file that shows its title.
3. **Embeds never recurse.** An embed of a note that is already being displayed
   (directly or through other embeds) is shown as a plain link.
4. **The id** is taken from the frontmatter, then from a file name ending in
   ` + "`-<id>.md`" + `. Importing a file whose id exists replaces that note.
5. **Task section.** ` + "`## Tasks`" + ` is only read as tasks when it is the last section and
   holds nothing but task lines (` + "`- [ ]`" + ` / ` + "`- [x]`" + `) and indented ` + "`- key: value`" + ` lines.
   Keys: id, description, priority (low, medium, high, critical), status (not_started,
   in_progress, completed, on_hold, cancelled), progress (0-100), startDate, endDate, fulfils,
   requires.
6. **Inline #tags** in the body are added to the frontmatter tags.
7. **Encoding** is UTF-8 with a trailing newline.

## Assets & Images

- Upload assets with the ` + "`upload_asset`" + ` tool. It returns a ` + "`markdownImage`" + ` field
  ready to paste into the note body.
- Assets live in the vault's ` + "`attachments/`" + ` directory (flat) and are referenced as
  ` + "`![description](/api/attachments/filename.png)`" + `.
- Supported formats: png, jpg, jpeg, gif, webp, svg, pdf.

## Example

` + fence + `markdown
---
title: Weekly standup 2025-01-20
tags: ["meeting-notes", "project-x"]
---

Attendees: Alice, Bob. #standup

![[Project X roadmap]]

Follow-ups are tracked in [[Design review]].

## Tasks
- [ ] Alice to review the design doc
  - priority: high
` + fence + `
`
