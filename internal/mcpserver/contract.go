package mcpserver

// PublishFormatContract describes how a note records its gist and how its
// links look once published.
const PublishFormatContract = `# gistpub Publish Format

A note is published to exactly one private GitHub gist. The note remembers
that gist through a single front matter key.

## Front matter

` + "```" + `markdown
---
title: Anything you like
gist_id: "aa5a315d61ae9438b18d"     # written by gistpub on first publish
---
` + "```" + `

1. The header must start on the first line of the file.
2. ` + "`" + `gist_id` + "`" + ` is added just above the closing ` + "`" + `---` + "`" + `; every other line is kept as is.
3. A note without a header gets a new one holding only ` + "`" + `gist_id` + "`" + `, followed by a blank line.
4. Once ` + "`" + `gist_id` + "`" + ` is present every publish updates that gist; it is never recreated.
5. To publish into an existing gist, set ` + "`" + `gist_id` + "`" + ` by hand before publishing.

## Uploaded content

- The front matter is stripped; the gist file is named after the note file (e.g. ` + "`" + `My Note.md` + "`" + `).
- A wikilink to a note that carries a ` + "`" + `gist_id` + "`" + ` becomes a Markdown link:
  - same gist: ` + "`" + `[[Other]]` + "`" + ` becomes ` + "`" + `[Other](#file-other-md)` + "`" + `
  - another gist: ` + "`" + `[[Other]]` + "`" + ` becomes ` + "`" + `[Other](https://gist.github.com/<id>#file-other-md)` + "`" + `
- Links to unpublished notes, attachments and missing notes are uploaded unchanged.
- Only the first occurrence of each link is rewritten.
`
