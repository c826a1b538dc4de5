package rss

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Example Blog</title>
    <item>
      <title>First post</title>
      <link>https://example.com/first</link>
      <guid>post-1</guid>
    </item>
    <item>
      <title>Second post</title>
      <link>https://example.com/second</link>
      <guid>post-2</guid>
    </item>
  </channel>
</rss>`

const atomFixture = `<?xml version="1.0" encoding="utf-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Example Feed</title>
  <entry>
    <title>Atom entry</title>
    <id>urn:uuid:1</id>
    <link href="https://example.com/atom-entry"/>
  </entry>
</feed>`

func TestParseFeed_RSS(t *testing.T) {
	items, err := parseFeed([]byte(rssFixture))
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "First post", items[0].Title)
	assert.Equal(t, "https://example.com/first", items[0].Link)
	assert.Equal(t, "post-1", items[0].GUID)
	assert.Equal(t, "Example Blog", items[0].FeedTitle)
}

func TestParseFeed_Atom(t *testing.T) {
	items, err := parseFeed([]byte(atomFixture))
	require.NoError(t, err)
	require.Len(t, items, 1)

	assert.Equal(t, "Atom entry", items[0].Title)
	assert.Equal(t, "https://example.com/atom-entry", items[0].Link)
	assert.Equal(t, "urn:uuid:1", items[0].GUID)
	assert.Equal(t, "Example Feed", items[0].FeedTitle)
}

func TestParseFeed_Invalid(t *testing.T) {
	_, err := parseFeed([]byte("not xml at all"))
	assert.Error(t, err)
}
