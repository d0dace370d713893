package anilist

const mediaFields = `
fragment mediaFields on Media {
  id
  idMal
  title { romaji english native userPreferred }
  type
  format
  status
  description(asHtml: false)
  episodes
  chapters
  volumes
  duration
  genres
  averageScore
  popularity
  season
  seasonYear
  coverImage { extraLarge large medium color }
  bannerImage
  startDate { year month day }
  nextAiringEpisode { airingAt timeUntilAiring episode }
}
`

const pageQuery = `
query ($page: Int, $perPage: Int, $search: String, $type: MediaType, $sort: [MediaSort],
       $genre: String, $season: MediaSeason, $seasonYear: Int, $status: MediaStatus, $ids: [Int]) {
  Page(page: $page, perPage: $perPage) {
    pageInfo { total currentPage lastPage hasNextPage perPage }
    media(search: $search, type: $type, sort: $sort, genre: $genre, season: $season,
          seasonYear: $seasonYear, status: $status, id_in: $ids, isAdult: false) {
      ...mediaFields
    }
  }
}
` + mediaFields

const mediaQuery = `
query ($id: Int) {
  Media(id: $id) {
    ...mediaFields
    relations {
      edges {
        relationType(version: 2)
        node {
          id
          title { romaji english native userPreferred }
          type
          format
          status
          episodes
          chapters
          coverImage { large medium }
        }
      }
    }
  }
}
` + mediaFields
